package worker

import "sync"

type fenceState int

const (
	fenceOpen fenceState = iota
	fenceCommitted
	fenceExpired
)

// Fence gates the writes of one job run. The worker expires it when the job
// times out; from then on the runner can no longer touch shared state.
// A commit in progress when the worker expires the fence runs to completion
// and the job counts as successful.
type Fence struct {
	mu    sync.Mutex
	state fenceState
}

// NewFence returns an open fence.
func NewFence() *Fence {
	return &Fence{}
}

// Do runs fn while the fence is open without closing it.
func (f *Fence) Do(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case fenceExpired:
		return ErrFenceExpired
	case fenceCommitted:
		return ErrFenceCommitted
	}
	return fn()
}

// Commit runs fn as the final write of the job. On success the fence is
// closed and Expire has no effect; on failure it stays open.
func (f *Fence) Commit(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case fenceExpired:
		return ErrFenceExpired
	case fenceCommitted:
		return ErrFenceCommitted
	}
	if err := fn(); err != nil {
		return err
	}
	f.state = fenceCommitted
	return nil
}

// Expire closes an open fence. It reports false when the job had already
// committed.
func (f *Fence) Expire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == fenceCommitted {
		return false
	}
	f.state = fenceExpired
	return true
}

// Committed reports whether Commit succeeded.
func (f *Fence) Committed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == fenceCommitted
}

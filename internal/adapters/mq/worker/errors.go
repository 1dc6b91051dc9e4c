package worker

import "errors"

// Sentinel errors reported through job status.
var (
	// ErrJobTimeout marks a job that exceeded the hard execution limit.
	ErrJobTimeout = errors.New("job timed out")

	// ErrRunnerPanic marks a job whose runner panicked.
	ErrRunnerPanic = errors.New("job runner panicked")

	// ErrFenceExpired is returned to a runner that tries to write after its
	// job was abandoned.
	ErrFenceExpired = errors.New("job fence expired")

	// ErrFenceCommitted is returned on a second commit through the same fence.
	ErrFenceCommitted = errors.New("job fence already committed")
)

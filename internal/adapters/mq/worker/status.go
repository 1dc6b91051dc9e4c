package worker

import (
	"sync"
	"time"

	"github.com/okian/cinematch/internal/domain/model"
)

// StatusStore records every job issued during the process lifetime.
// Entries are never pruned.
type StatusStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewStatusStore creates an empty status store.
func NewStatusStore() *StatusStore {
	return &StatusStore{jobs: make(map[string]model.Job)}
}

// Put records a new job.
func (s *StatusStore) Put(job model.Job) { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Delete forgets a job that was never accepted by the queue.
func (s *StatusStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Start marks a job running.
func (s *StatusStore) Start(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = model.JobRunning
		j.StartedAt = at
		s.jobs[id] = j
	}
}

// Finish records the final status of a job.
func (s *StatusStore) Finish(id string, status model.JobStatus, errMsg string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = status
		j.Err = errMsg
		j.FinishedAt = at
		s.jobs[id] = j
	}
}

// FailWaiting marks every job still waiting as failed and returns how many
// it changed. Running and finished jobs are left alone.
func (s *StatusStore) FailWaiting(errMsg string, at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if j.Status != model.JobWaiting {
			continue
		}
		j.Status = model.JobError
		j.Err = errMsg
		j.FinishedAt = at
		s.jobs[id] = j
		n++
	}
	return n
}

// Get returns a copy of the job.
func (s *StatusStore) Get(id string) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Status returns the job status, or JobNotFound for unknown ids.
func (s *StatusStore) Status(id string) model.JobStatus {
	if j, ok := s.Get(id); ok {
		return j.Status
	}
	return model.JobNotFound
}

// Counts returns the number of jobs per status.
func (s *StatusStore) Counts() map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.JobStatus]int, 4)
	for _, j := range s.jobs {
		out[j.Status]++
	}
	return out
}

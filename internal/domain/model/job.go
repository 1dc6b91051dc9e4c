package model

import "time"

// JobStatus is the lifecycle state of a recommendation job.
type JobStatus string

// Job states. NotFound is reported for ids the process never issued.
const (
	JobWaiting  JobStatus = "waiting"
	JobRunning  JobStatus = "running"
	JobSuccess  JobStatus = "success"
	JobError    JobStatus = "error"
	JobNotFound JobStatus = "not_found"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// Job is a queued request to recompute one user's recommendations.
type Job struct {
	ID         string
	UserID     int64
	Status     JobStatus
	Err        string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

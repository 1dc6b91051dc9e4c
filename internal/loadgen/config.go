// Package loadgen drives a running service through its HTTP API: it submits
// generated rating sets, polls the jobs and checks the served lists.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	CatalogPath    string        // Catalogue the ratings are drawn from
	Users          int           // Number of synthetic users
	FirstUserID    int64         // Id of the first synthetic user
	RatingsPerUser int           // Ratings submitted per user
	Workers        int           // Concurrent HTTP workers
	Rate           float64       // Submissions per second, 0 for unlimited
	Timeout        time.Duration // HTTP request timeout
	JobDeadline    time.Duration // How long to wait for all jobs
	PollInterval   time.Duration // Delay between status polls
	Seed           uint64        // Seed of the rating generator
	Verbose        bool          // Log every request
}

// Submission is one user's generated rating set.
type Submission struct {
	UserID  int64    `json:"-"`
	Ratings []Rating `json:"ratings"`
}

// Rating mirrors the API rating payload.
type Rating struct {
	ItemID int64   `json:"item_id"`
	Value  float64 `json:"rating"`
}

// JobStatus mirrors the API poll response.
type JobStatus struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Recommendation mirrors one served list entry.
type Recommendation struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted       int
	Rejected        int
	JobsSucceeded   int
	JobsFailed      int
	JobsUnfinished  int
	ListsVerified   int
	Recommendations int
	StartTime       time.Time
	Duration        time.Duration
}

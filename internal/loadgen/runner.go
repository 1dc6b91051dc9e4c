package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/pkg/logger"
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate submissions
	catalog, err := repository.LoadCatalog(config.CatalogPath)
	if err != nil {
		return nil, err
	}
	subs, err := generateSubmissions(ctx, config, catalog)
	if err != nil {
		return nil, fmt.Errorf("submission generation failed: %w", err)
	}

	// Step 3: Submit concurrently
	jobs := submitAll(ctx, config, client, subs, stats)

	// Step 4: Wait for the jobs
	done := awaitJobs(ctx, config, client, jobs, stats)

	// Step 5: Verify the served lists
	if err := verifyLists(ctx, config, client, subs, done, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// submitAll posts every submission and returns job ids keyed by user.
func submitAll(ctx context.Context, config *Config, client *HTTPClient, subs []Submission, stats *Stats) map[int64]string {
	log := logger.Get().Named("loadgen")
	var mu sync.Mutex
	jobs := make(map[int64]string, len(subs))

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.Rate), max(config.Workers, 1))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, s := range subs {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			jobID, err := client.submit(gctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Rejected++
				if config.Verbose {
					log.Warn(gctx, "submission rejected", logger.Int64("user_id", s.UserID), logger.Error(err))
				}
				return nil
			}
			stats.Submitted++
			jobs[s.UserID] = jobID
			return nil
		})
	}
	_ = g.Wait()

	log.Info(ctx, "submissions sent",
		logger.Int("submitted", stats.Submitted),
		logger.Int("rejected", stats.Rejected),
	)
	return jobs
}

// awaitJobs polls until every job is ready or the deadline passes and
// returns the users whose job succeeded.
func awaitJobs(ctx context.Context, config *Config, client *HTTPClient, jobs map[int64]string, stats *Stats) []int64 {
	ctx, cancel := context.WithTimeout(ctx, config.JobDeadline)
	defer cancel()

	pending := make(map[int64]string, len(jobs))
	for u, id := range jobs {
		pending[u] = id
	}

	var succeeded []int64
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for len(pending) > 0 {
		for user, jobID := range pending {
			st, err := client.poll(ctx, jobID)
			if err != nil || (!st.Ready && st.OK) {
				continue
			}
			delete(pending, user)
			if st.Ready {
				stats.JobsSucceeded++
				succeeded = append(succeeded, user)
			} else {
				stats.JobsFailed++
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			stats.JobsUnfinished = len(pending)
			return succeeded
		case <-ticker.C:
		}
	}
	return succeeded
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("jobsSucceeded", stats.JobsSucceeded),
		logger.Int("jobsFailed", stats.JobsFailed),
		logger.Int("jobsUnfinished", stats.JobsUnfinished),
		logger.Int("listsVerified", stats.ListsVerified),
		logger.Int("recommendations", stats.Recommendations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}

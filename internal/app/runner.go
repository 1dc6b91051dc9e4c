package service

import (
	"context"
	"fmt"

	"github.com/okian/cinematch/internal/adapters/mq/worker"
	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/internal/domain/scoring"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// Recommender produces a ranked candidate list from a user's ratings.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, ratings []model.Rating) ([]model.ScoredItem, error)
}

// Runner recomputes one user's recommendations. Every store write goes
// through the job's fence, so a run abandoned at its deadline leaves the
// user not ready and publishes nothing.
type Runner struct {
	store       repository.Store
	recommender Recommender
	minRatings  int
	onCommit    func(ctx context.Context, userID int64)
	logger      logger.Logger
}

var _ worker.Runner = (*Runner)(nil)

// NewRunner creates a runner. onCommit, if set, runs after a successful commit.
func NewRunner(store repository.Store, recommender Recommender, minRatings int, onCommit func(context.Context, int64)) *Runner {
	if minRatings < 1 {
		minRatings = 1
	}
	return &Runner{
		store:       store,
		recommender: recommender,
		minRatings:  minRatings,
		onCommit:    onCommit,
		logger:      logger.Get().Named("runner"),
	}
}

// Run implements worker.Runner.
func (r *Runner) Run(ctx context.Context, job model.Job, fence *worker.Fence) error { //nolint:gocritic // hugeParam: matches worker.Runner
	ratings, err := r.store.RatingsOf(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load ratings of user %d: %w", job.UserID, err)
	}

	if err := fence.Do(func() error {
		return r.store.InvalidateRecommendations(ctx, job.UserID)
	}); err != nil {
		return fmt.Errorf("invalidate recommendations: %w", err)
	}

	if len(ratings) < r.minRatings {
		return fmt.Errorf("%w: user %d has %d ratings, need %d",
			ErrInsufficientRatings, job.UserID, len(ratings), r.minRatings)
	}

	recs, err := r.recommender.Recommend(ctx, job.UserID, ratings)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	if err := fence.Commit(func() error {
		return r.store.ReplaceRecommendations(ctx, job.UserID, recs)
	}); err != nil {
		return fmt.Errorf("persist recommendations: %w", err)
	}

	metrics.RecordRecommendationsWritten(len(recs))
	r.logger.Debug(ctx, "recommendations committed",
		logger.String("job_id", job.ID),
		logger.Int64("user_id", job.UserID),
		logger.Int("count", len(recs)),
	)
	if r.onCommit != nil {
		r.onCommit(context.WithoutCancel(ctx), job.UserID)
	}
	return nil
}

var _ Recommender = (*scoring.Combiner)(nil)

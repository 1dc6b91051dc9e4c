package scoring

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// Combiner merges the collaborative and content signals into one ranking.
type Combiner struct {
	collaborative Scorer
	content       Scorer

	userWeight    float64
	contentWeight float64
	midpoint      float64

	logger logger.Logger
}

// NewCombiner creates a combiner over the two signal scorers.
func NewCombiner(collaborative, content Scorer, opts ...CombinerOption) *Combiner {
	c := &Combiner{
		collaborative: collaborative,
		content:       content,
		userWeight:    DefaultUserWeight,
		contentWeight: DefaultContentWeight,
		midpoint:      DefaultMidpoint,
		logger:        logger.Get().Named("combiner"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recommend normalizes ratings, runs both signals concurrently and returns
// the positive candidates ordered by score descending then item id.
// Rated items never appear in the result.
func (c *Combiner) Recommend(ctx context.Context, userID int64, ratings []model.Rating) ([]model.ScoredItem, error) {
	if len(ratings) == 0 {
		return nil, ErrNoRatings
	}

	items := model.ItemIDs(ratings)
	normalized := make([]float64, len(ratings))
	for i, r := range ratings {
		normalized[i] = Normalize(r.Value, c.midpoint)
	}

	var collaborative, content []model.ScoredItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		res, err := c.collaborative.Score(gctx, userID, items, normalized)
		metrics.RecordScorerLatency("collaborative", float64(time.Since(start).Microseconds())/1000)
		collaborative = res
		return err
	})
	g.Go(func() error {
		start := time.Now()
		res, err := c.content.Score(gctx, userID, items, normalized)
		metrics.RecordScorerLatency("content", float64(time.Since(start).Microseconds())/1000)
		content = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make(ScoreMap, len(collaborative)+len(content))
	for _, it := range collaborative {
		total.Add(it.ItemID, c.userWeight*it.Score)
	}
	for _, it := range content {
		total.Add(it.ItemID, c.contentWeight*it.Score)
	}

	ranked := total.Ranked(idSet(items), true)
	c.logger.Debug(ctx, "recommendations combined",
		logger.Int64("user_id", userID),
		logger.Int("collaborative", len(collaborative)),
		logger.Int("content", len(content)),
		logger.Int("ranked", len(ranked)),
	)
	return ranked, nil
}

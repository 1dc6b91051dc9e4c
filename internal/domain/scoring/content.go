package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// ContentScorer ranks items that share directors, actors or plot with the
// rated items.
type ContentScorer struct {
	meta  Metadata
	index Neighbors

	directorWeight float64
	actorWeight    float64
	plotWeight     float64
	plotNeighbors  int

	logger logger.Logger
}

// NewContentScorer creates a content scorer over the given lookups.
func NewContentScorer(meta Metadata, index Neighbors, opts ...ContentOption) *ContentScorer {
	s := &ContentScorer{
		meta:           meta,
		index:          index,
		directorWeight: DefaultDirectorWeight,
		actorWeight:    DefaultActorWeight,
		plotWeight:     DefaultPlotWeight,
		plotNeighbors:  DefaultPlotNeighbors,
		logger:         logger.Get().Named("content-scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns candidates ranked by weighted content similarity. Input
// items and non-positive totals are dropped.
func (s *ContentScorer) Score(ctx context.Context, _ int64, items []int64, ratings []float64) ([]model.ScoredItem, error) {
	if len(items) != len(ratings) {
		return nil, fmt.Errorf("%w: %d items, %d ratings", ErrLengthMismatch, len(items), len(ratings))
	}

	director, err := timed("director", func() (ScoreMap, error) { return s.directorScores(ctx, items, ratings) })
	if err != nil {
		return nil, err
	}
	actor, err := timed("actor", func() (ScoreMap, error) { return s.actorScores(ctx, items, ratings) })
	if err != nil {
		return nil, err
	}
	plot, err := timed("plot", func() (ScoreMap, error) { return s.plotScores(ctx, items, ratings) })
	if err != nil {
		return nil, err
	}

	total := make(ScoreMap, len(director)+len(actor)+len(plot))
	total.Merge(actor, s.actorWeight)
	total.Merge(director, s.directorWeight)
	total.Merge(plot, s.plotWeight)

	return total.Ranked(idSet(items), true), nil
}

func (s *ContentScorer) directorScores(ctx context.Context, items []int64, ratings []float64) (ScoreMap, error) {
	scores := make(ScoreMap)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		director, ok, err := s.meta.DirectorOf(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("director of %d: %w", item, err)
		}
		if !ok {
			metrics.RecordUpstreamDegradation("director")
			s.logger.Info(ctx, "no director for item", logger.Int64("item_id", item))
			continue
		}
		others, err := s.meta.ItemsOfDirector(ctx, director)
		if err != nil {
			return nil, fmt.Errorf("items of director %d: %w", director, err)
		}
		for _, other := range others {
			if other != item {
				scores.Add(other, ratings[i])
			}
		}
	}
	return scores, nil
}

func (s *ContentScorer) actorScores(ctx context.Context, items []int64, ratings []float64) (ScoreMap, error) {
	scores := make(ScoreMap)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		actors, err := s.meta.ActorsOf(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("actors of %d: %w", item, err)
		}
		if len(actors) == 0 {
			metrics.RecordUpstreamDegradation("actors")
		}
		for _, actor := range actors {
			others, err := s.meta.ItemsOfActor(ctx, actor)
			if err != nil {
				return nil, fmt.Errorf("items of actor %d: %w", actor, err)
			}
			for _, other := range others {
				if other != item {
					scores.Add(other, ratings[i])
				}
			}
		}
	}
	return scores, nil
}

// plotScores fails only on cancellation: index errors and unindexed items
// contribute nothing.
func (s *ContentScorer) plotScores(ctx context.Context, items []int64, ratings []float64) (ScoreMap, error) {
	scores := make(ScoreMap)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := s.index.QueryNearest(ctx, item, s.plotNeighbors)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			metrics.RecordUpstreamDegradation("vector_index")
			s.logger.Warn(ctx, "plot similarity lookup skipped",
				logger.Int64("item_id", item),
				logger.Error(err),
			)
			continue
		}
		for _, hit := range hits {
			if hit.ItemID == item {
				continue
			}
			scores.Add(hit.ItemID, clampUnit(hit.Score)*ratings[i])
		}
	}
	return scores, nil
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}

func timed(signal string, fn func() (ScoreMap, error)) (ScoreMap, error) {
	start := time.Now()
	m, err := fn()
	metrics.RecordScorerLatency(signal, float64(time.Since(start).Microseconds())/1000)
	return m, err
}

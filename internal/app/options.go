package service

import (
	"time"

	"github.com/okian/cinematch/internal/adapters/cache"
	"github.com/okian/cinematch/internal/adapters/mq/worker"
	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/internal/config"
	"github.com/okian/cinematch/internal/domain/scoring"
	"github.com/okian/cinematch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithIndex sets the plot similarity index.
func WithIndex(index scoring.Neighbors) Option {
	return func(s *Service) {
		if index != nil {
			s.index = index
		}
	}
}

// WithCache sets the recommendation view cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobTimeout sets the hard per-job execution limit.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithMinRatings sets the smallest rating set accepted for computation.
func WithMinRatings(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minRatings = n
		}
	}
}

// WithRatingScale sets the accepted rating range, inclusive.
func WithRatingScale(lo, hi float64) Option {
	return func(s *Service) {
		if lo < hi {
			s.ratingMin, s.ratingMax = lo, hi
		}
	}
}

// WithMinScore sets the viability threshold. Only strictly greater scores are shown.
func WithMinScore(v float64) Option {
	return func(s *Service) {
		s.minScore = v
	}
}

// WithMaxRecommendations sets the display truncation length.
func WithMaxRecommendations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRecommendations = n
		}
	}
}

// WithWeights sets the scoring pipeline parameters.
func WithWeights(w config.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithRunner replaces the job runner built by Start.
func WithRunner(r worker.Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// FromConfig maps a loaded Config onto service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithQueueSize(cfg.QueueCapacity),
		WithJobTimeout(cfg.JobTimeout()),
		WithMinRatings(cfg.MinRatings),
		WithRatingScale(cfg.RatingMin, cfg.RatingMax),
		WithMinScore(cfg.MinScore),
		WithMaxRecommendations(cfg.MaxRecommendations),
		WithWeights(cfg.Weights),
	}
}

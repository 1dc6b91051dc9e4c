package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	MaxRequests      uint32
}

// BreakerIndex guards a remote index with a circuit breaker so a failing
// backend is skipped quickly instead of slowing every job down.
type BreakerIndex struct {
	next Index
	cb   *gobreaker.CircuitBreaker[[]model.ScoredItem]
}

var _ Index = (*BreakerIndex)(nil)

// NewBreakerIndex wraps next.
func NewBreakerIndex(next Index, cfg BreakerConfig) *BreakerIndex {
	if cfg.Name == "" {
		cfg.Name = "similarity-index"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	log := logger.Get().Named("index-breaker")

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}

	return &BreakerIndex{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]model.ScoredItem](settings),
	}
}

// QueryNearest forwards to the wrapped index unless the breaker is open.
func (b *BreakerIndex) QueryNearest(ctx context.Context, itemID int64, k int) ([]model.ScoredItem, error) {
	out, err := b.cb.Execute(func() ([]model.ScoredItem, error) {
		return b.next.QueryNearest(ctx, itemID, k)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, nil
}

// State returns the breaker state name.
func (b *BreakerIndex) State() string {
	return b.cb.State().String()
}

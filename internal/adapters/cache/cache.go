// Package cache holds each user's filtered, display-ready recommendation list.
package cache

import (
	"context"

	"github.com/okian/cinematch/internal/domain/model"
)

// Cache stores recommendation views per user. Implementations are safe for
// concurrent use and evaluate expiry lazily on read.
type Cache interface {
	Get(ctx context.Context, userID int64) ([]model.ViewItem, bool)
	Put(ctx context.Context, userID int64, items []model.ViewItem)
	Invalidate(ctx context.Context, userID int64)
	Len() int
}

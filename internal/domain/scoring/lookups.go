package scoring

import (
	"context"

	"github.com/okian/cinematch/internal/domain/model"
)

// Scorer produces one recommendation signal for a user's rated items.
// items and ratings are parallel slices.
type Scorer interface {
	Score(ctx context.Context, userID int64, items []int64, ratings []float64) ([]model.ScoredItem, error)
}

// Metadata exposes the reverse indexes the content signal walks.
// Lookups return ids in ascending order.
type Metadata interface {
	// DirectorOf returns the item's director; ok is false when none is known.
	DirectorOf(ctx context.Context, itemID int64) (directorID int64, ok bool, err error)
	ActorsOf(ctx context.Context, itemID int64) ([]int64, error)
	ItemsOfDirector(ctx context.Context, directorID int64) ([]int64, error)
	ItemsOfActor(ctx context.Context, actorID int64) ([]int64, error)
}

// Neighbors is the plot similarity index. An empty result means the item
// was never indexed.
type Neighbors interface {
	QueryNearest(ctx context.Context, itemID int64, k int) ([]model.ScoredItem, error)
}

// RatingSource exposes other users' ratings to the collaborative signal.
type RatingSource interface {
	// UsersWhoRated returns, ascending, every user with a rating for any of itemIDs.
	UsersWhoRated(ctx context.Context, itemIDs []int64) ([]int64, error)
	RatingsOf(ctx context.Context, userID int64) ([]model.Rating, error)
}

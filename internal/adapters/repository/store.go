// Package repository holds users, ratings, recommendations and the movie
// catalogue.
package repository

import (
	"context"

	"github.com/okian/cinematch/internal/domain/model"
)

// UserStore manages users and their ratings.
type UserStore interface {
	// SaveRatings replaces every rating of the user, creating the user if
	// needed, and clears the ready flag.
	SaveRatings(ctx context.Context, userID int64, ratings []model.Rating) error

	// RatingsOf returns the user's ratings ordered by item id.
	// Returns ErrUserNotFound for unknown users.
	RatingsOf(ctx context.Context, userID int64) ([]model.Rating, error)

	// UsersWhoRated returns, ascending, every user with a rating for any of itemIDs.
	UsersWhoRated(ctx context.Context, itemIDs []int64) ([]int64, error)
}

// RecommendationStore manages persisted recommendations and the ready flag.
type RecommendationStore interface {
	// IsReady reports the user's ready flag.
	IsReady(ctx context.Context, userID int64) (bool, error)

	// InvalidateRecommendations clears the ready flag and deletes the rows
	// in one transaction.
	InvalidateRecommendations(ctx context.Context, userID int64) error

	// ReplaceRecommendations deletes the user's rows, inserts recs and sets
	// the ready flag in one transaction.
	ReplaceRecommendations(ctx context.Context, userID int64, recs []model.ScoredItem) error

	// Recommendations returns the persisted rows by score descending.
	Recommendations(ctx context.Context, userID int64) ([]model.Recommendation, error)
}

// CatalogStore exposes movie metadata and its reverse indexes.
type CatalogStore interface {
	Items(ctx context.Context, ids []int64) (map[int64]model.Item, error)
	UnknownItems(ctx context.Context, ids []int64) ([]int64, error)
	Genres(ctx context.Context) ([]string, error)

	DirectorOf(ctx context.Context, itemID int64) (int64, bool, error)
	ActorsOf(ctx context.Context, itemID int64) ([]int64, error)
	ItemsOfDirector(ctx context.Context, directorID int64) ([]int64, error)
	ItemsOfActor(ctx context.Context, actorID int64) ([]int64, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	UserStore
	RecommendationStore
	CatalogStore
}

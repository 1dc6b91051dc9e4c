package scoring

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
)

// CollaborativeScorer recommends what the closest overlapping users liked.
type CollaborativeScorer struct {
	source RatingSource

	closestUsers int
	neutral      float64
	midpoint     float64

	logger logger.Logger
}

// NewCollaborativeScorer creates a collaborative scorer over source.
func NewCollaborativeScorer(source RatingSource, opts ...CollaborativeOption) *CollaborativeScorer {
	s := &CollaborativeScorer{
		source:       source,
		closestUsers: DefaultClosestUsers,
		neutral:      DefaultNeutralRating,
		midpoint:     DefaultMidpoint,
		logger:       logger.Get().Named("collaborative-scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type neighbour struct {
	userID   int64
	distance float64
	ratings  []model.Rating
}

// Score compares the querying user with every other user who rated one of
// items and sums the normalized ratings of the closest ones. ratings are
// expected already normalized. userID is never its own neighbour, and input
// items are left out of the result. Scores are not filtered by sign.
func (s *CollaborativeScorer) Score(ctx context.Context, userID int64, items []int64, ratings []float64) ([]model.ScoredItem, error) {
	if len(items) != len(ratings) {
		return nil, fmt.Errorf("%w: %d items, %d ratings", ErrLengthMismatch, len(items), len(ratings))
	}

	keys := slices.Clone(items)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	own := make(map[int64]float64, len(items))
	for i, item := range items {
		own[item] = ratings[i]
	}
	target := make([]float64, len(keys))
	for i, k := range keys {
		target[i] = own[k]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := s.source.UsersWhoRated(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("overlapping users: %w", err)
	}

	neighbours := make([]neighbour, 0, len(users))
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u == userID {
			continue
		}
		rs, err := s.source.RatingsOf(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("ratings of user %d: %w", u, err)
		}
		neighbours = append(neighbours, neighbour{
			userID:   u,
			distance: Distance(s.vector(rs, keys), target),
			ratings:  rs,
		})
	}

	slices.SortFunc(neighbours, func(a, b neighbour) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.userID, b.userID)
	})
	if len(neighbours) > s.closestUsers {
		neighbours = neighbours[:s.closestUsers]
	}

	s.logger.Debug(ctx, "collaborative neighbourhood",
		logger.Int64("user_id", userID),
		logger.Int("overlapping", len(users)),
		logger.Int("selected", len(neighbours)),
	)

	scores := make(ScoreMap)
	for _, n := range neighbours {
		for _, r := range n.ratings {
			scores.Add(r.ItemID, Normalize(r.Value, s.midpoint))
		}
	}
	return scores.Ranked(idSet(items), false), nil
}

// vector lays a neighbour's ratings over keys, filling gaps with the
// normalized neutral rating.
func (s *CollaborativeScorer) vector(rs []model.Rating, keys []int64) []float64 {
	byItem := make(map[int64]float64, len(rs))
	for _, r := range rs {
		byItem[r.ItemID] = r.Value
	}
	vec := make([]float64, len(keys))
	for i, k := range keys {
		v, ok := byItem[k]
		if !ok {
			v = s.neutral
		}
		vec[i] = Normalize(v, s.midpoint)
	}
	return vec
}

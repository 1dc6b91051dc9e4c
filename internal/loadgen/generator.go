package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/pkg/logger"
)

// Rating scale used by generated submissions, in half-star steps.
const (
	ratingSteps = 10
	ratingStep  = 0.5
)

// generateSubmissions draws RatingsPerUser distinct catalogue items for
// every synthetic user. The same seed yields the same submissions.
func generateSubmissions(ctx context.Context, config *Config, catalog *repository.Catalog) ([]Submission, error) {
	if len(catalog.Items) < config.RatingsPerUser {
		return nil, fmt.Errorf("catalog has %d items, need %d per user", len(catalog.Items), config.RatingsPerUser)
	}
	logger.Get().Info(ctx, "generating submissions",
		logger.Int("users", config.Users),
		logger.Int("ratingsPerUser", config.RatingsPerUser),
	)

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible load, not security
	ids := make([]int64, len(catalog.Items))
	for i, it := range catalog.Items {
		ids[i] = it.ID
	}

	out := make([]Submission, config.Users)
	for u := range out {
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		ratings := make([]Rating, config.RatingsPerUser)
		for i := range ratings {
			ratings[i] = Rating{
				ItemID: ids[i],
				Value:  float64(rng.IntN(ratingSteps)+1) * ratingStep,
			}
		}
		out[u] = Submission{UserID: config.FirstUserID + int64(u), Ratings: ratings}
	}
	return out, nil
}

package service_test

import (
	"context"
	"time"

	"github.com/okian/cinematch/internal/adapters/index"
	"github.com/okian/cinematch/internal/adapters/repository"
	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/domain/model"
)

const catalogJSON = `{
  "items": [
    {"id": 1,  "title": "Heat",            "genres": ["Crime", "Thriller"], "director_id": 1, "actor_ids": [10, 11], "embedding": [1, 0, 0]},
    {"id": 2,  "title": "Collateral",      "genres": ["Crime", "Drama"],    "director_id": 1, "actor_ids": [12],     "embedding": [0.9, 0.1, 0]},
    {"id": 3,  "title": "Alien",           "genres": ["Sci-Fi", "Horror"],  "director_id": 2, "actor_ids": [13],     "embedding": [0, 1, 0]},
    {"id": 4,  "title": "Blade Runner",    "genres": ["Sci-Fi", "Noir"],    "director_id": 2, "actor_ids": [14],     "embedding": [0.1, 0.9, 0]},
    {"id": 5,  "title": "The Insider",     "genres": ["Drama"],             "director_id": 1, "actor_ids": [11],     "embedding": [0.5, 0, 0.5]},
    {"id": 6,  "title": "Thief",           "genres": ["Crime", "Drama"],    "director_id": 1, "actor_ids": [15],     "embedding": [0.8, 0, 0.2]},
    {"id": 7,  "title": "Gladiator",       "genres": ["Action", "Drama"],   "director_id": 2, "actor_ids": [12],     "embedding": [0.2, 0.2, 0.6]},
    {"id": 8,  "title": "The Godfather",   "genres": ["Crime", "Drama"],    "director_id": 3, "actor_ids": [10],     "embedding": [0.7, 0, 0.3]},
    {"id": 9,  "title": "Prometheus",      "genres": ["Sci-Fi"],            "director_id": 2, "actor_ids": [16],     "embedding": [0, 0.8, 0.2]},
    {"id": 10, "title": "Home Movie",      "genres": ["(no genres listed)"], "director_id": 4, "actor_ids": [17],    "embedding": [0, 0, 1]}
  ],
  "ratings": [
    {"user_id": 1, "item_id": 1, "rating": 5}, {"user_id": 1, "item_id": 2, "rating": 4.5}, {"user_id": 1, "item_id": 6, "rating": 5},
    {"user_id": 1, "item_id": 8, "rating": 4.5},
    {"user_id": 2, "item_id": 3, "rating": 5}, {"user_id": 2, "item_id": 4, "rating": 4}, {"user_id": 2, "item_id": 9, "rating": 4.5},
    {"user_id": 3, "item_id": 1, "rating": 1}, {"user_id": 3, "item_id": 7, "rating": 1}
  ]
}`

func newFixture(ctx context.Context) (*repository.MemoryStore, *index.MemoryIndex) {
	catalog, err := repository.ParseCatalog([]byte(catalogJSON))
	if err != nil {
		panic(err)
	}
	store := repository.NewMemoryStore()
	if err := store.Seed(ctx, catalog); err != nil {
		panic(err)
	}
	idx := index.NewMemoryIndex()
	for _, it := range catalog.Items {
		if err := idx.Add(it.ID, it.Embedding); err != nil {
			panic(err)
		}
	}
	return store, idx
}

func crimeFan() []model.Rating {
	return []model.Rating{
		{ItemID: 1, Value: 5},
		{ItemID: 2, Value: 4.5},
		{ItemID: 5, Value: 4},
		{ItemID: 3, Value: 1},
		{ItemID: 4, Value: 1.5},
	}
}

func sciFiFan() []model.Rating {
	return []model.Rating{
		{ItemID: 3, Value: 5},
		{ItemID: 4, Value: 5},
		{ItemID: 1, Value: 1},
		{ItemID: 2, Value: 1},
		{ItemID: 5, Value: 2},
	}
}

func waitForJob(ctx context.Context, svc *service.Service, jobID string) service.PollResult {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		res, err := svc.PollStatus(ctx, jobID)
		if err == nil && (res.Ready || !res.OK) {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	res, _ := svc.PollStatus(ctx, jobID)
	return res
}

package loadgen

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/cinematch/internal/adapters/http/api"
	"github.com/okian/cinematch/internal/adapters/index"
	"github.com/okian/cinematch/internal/adapters/repository"
	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const catalogJSON = `{
  "items": [
    {"id": 1, "title": "Heat",          "genres": ["Crime"],  "director_id": 1, "actor_ids": [10], "embedding": [1, 0, 0]},
    {"id": 2, "title": "Collateral",    "genres": ["Crime"],  "director_id": 1, "actor_ids": [11], "embedding": [0.9, 0.1, 0]},
    {"id": 3, "title": "Alien",         "genres": ["Sci-Fi"], "director_id": 2, "actor_ids": [12], "embedding": [0, 1, 0]},
    {"id": 4, "title": "Blade Runner",  "genres": ["Sci-Fi"], "director_id": 2, "actor_ids": [13], "embedding": [0.1, 0.9, 0]},
    {"id": 5, "title": "Amelie",        "genres": ["Comedy"], "director_id": 3, "actor_ids": [14], "embedding": [0, 0, 1]},
    {"id": 6, "title": "Delicatessen",  "genres": ["Comedy"], "director_id": 3, "actor_ids": [14], "embedding": [0, 0.2, 0.9]},
    {"id": 7, "title": "Thief",         "genres": ["Crime"],  "director_id": 1, "actor_ids": [10], "embedding": [0.8, 0, 0.2]},
    {"id": 8, "title": "Moon",          "genres": ["Sci-Fi"], "director_id": 4, "actor_ids": [15], "embedding": [0.2, 0.8, 0.1]}
  ],
  "ratings": [
    {"user_id": 1, "item_id": 1, "rating": 5}, {"user_id": 1, "item_id": 2, "rating": 4},
    {"user_id": 1, "item_id": 7, "rating": 5}, {"user_id": 1, "item_id": 3, "rating": 1},
    {"user_id": 2, "item_id": 3, "rating": 5}, {"user_id": 2, "item_id": 4, "rating": 4.5},
    {"user_id": 2, "item_id": 8, "rating": 4}, {"user_id": 2, "item_id": 5, "rating": 2}
  ]
}`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeCatalog(dir string) string {
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o600); err != nil {
		panic(err)
	}
	return path
}

func newTarget(ctx context.Context, catalogPath string) (*httptest.Server, *service.Service) {
	catalog, err := repository.LoadCatalog(catalogPath)
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

	svc := service.New(
		service.WithStore(store),
		service.WithIndex(idx),
		service.WithJobTimeout(5*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	srv := httptest.NewServer(api.NewServer(svc, svc, api.WithSubmitRate(0)).Routes())
	return srv, svc
}

func testConfig(url, catalogPath string) *Config {
	return &Config{
		BaseURL:        url,
		CatalogPath:    catalogPath,
		Users:          10,
		FirstUserID:    1000,
		RatingsPerUser: 5,
		Workers:        4,
		Rate:           200,
		Timeout:        5 * time.Second,
		JobDeadline:    10 * time.Second,
		PollInterval:   10 * time.Millisecond,
		Seed:           7,
	}
}

func TestGenerateSubmissions(t *testing.T) {
	Convey("Given a catalogue and a seeded config", t, func() {
		ctx := context.Background()
		catalog, err := repository.ParseCatalog([]byte(catalogJSON))
		So(err, ShouldBeNil)
		cfg := testConfig("", "")

		Convey("When submissions are generated", func() {
			subs, err := generateSubmissions(ctx, cfg, catalog)
			So(err, ShouldBeNil)

			Convey("Then every user rates distinct items on the half-star scale", func() {
				So(subs, ShouldHaveLength, 10)
				So(subs[0].UserID, ShouldEqual, 1000)
				So(subs[9].UserID, ShouldEqual, 1009)
				for _, s := range subs {
					So(s.Ratings, ShouldHaveLength, 5)
					seen := map[int64]bool{}
					for _, r := range s.Ratings {
						So(seen[r.ItemID], ShouldBeFalse)
						seen[r.ItemID] = true
						So(r.Value, ShouldBeBetweenOrEqual, 0.5, 5)
					}
				}
			})

			Convey("Then the same seed yields the same submissions", func() {
				again, err := generateSubmissions(ctx, cfg, catalog)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, subs)
			})
		})

		Convey("When more ratings are requested than items exist", func() {
			cfg.RatingsPerUser = 9
			_, err := generateSubmissions(ctx, cfg, catalog)

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestCheckList(t *testing.T) {
	Convey("Given a user's rated items", t, func() {
		rated := map[int64]struct{}{1: {}, 2: {}}

		Convey("Then an ordered list of unrated items passes", func() {
			recs := []Recommendation{{ID: 3, Score: 2}, {ID: 4, Score: 1.5}, {ID: 5, Score: 1.5}}
			So(checkList(1, recs, rated), ShouldBeNil)
		})

		Convey("Then a rated item fails", func() {
			err := checkList(1, []Recommendation{{ID: 2, Score: 3}}, rated)
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
		})

		Convey("Then an increasing score fails", func() {
			err := checkList(1, []Recommendation{{ID: 3, Score: 1}, {ID: 4, Score: 2}}, rated)
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
		})

		Convey("Then a non-positive score fails", func() {
			err := checkList(1, []Recommendation{{ID: 3, Score: 0}}, rated)
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx := context.Background()
		catalogPath := writeCatalog(t.TempDir())
		srv, svc := newTarget(ctx, catalogPath)
		defer func() {
			srv.Close()
			stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = svc.Stop(stopCtx)
		}()

		Convey("When a load run completes", func() {
			stats, err := Run(ctx, testConfig(srv.URL, catalogPath))

			Convey("Then every submission is accepted and every job finishes", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 10)
				So(stats.Rejected, ShouldEqual, 0)
				So(stats.JobsUnfinished, ShouldEqual, 0)
				So(stats.JobsSucceeded+stats.JobsFailed, ShouldEqual, 10)
				So(stats.ListsVerified, ShouldBeLessThanOrEqualTo, stats.JobsSucceeded)
			})
		})

		Convey("When the service is unreachable", func() {
			_, err := Run(ctx, testConfig("http://127.0.0.1:1", catalogPath))

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

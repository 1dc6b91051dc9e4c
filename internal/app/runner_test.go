package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/cinematch/internal/adapters/mq/worker"
	"github.com/okian/cinematch/internal/adapters/repository"
	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fixedRecommender struct {
	recs []model.ScoredItem
	err  error
}

func (f fixedRecommender) Recommend(context.Context, int64, []model.Rating) ([]model.ScoredItem, error) {
	return f.recs, f.err
}

func TestRunner(t *testing.T) {
	Convey("Given a user with enough ratings", t, func() {
		ctx := context.Background()
		store, _ := newFixture(ctx)
		So(store.SaveRatings(ctx, 100, crimeFan()), ShouldBeNil)
		So(store.ReplaceRecommendations(ctx, 100, []model.ScoredItem{{ItemID: 10, Score: 1}}), ShouldBeNil)

		var committed []int64
		onCommit := func(_ context.Context, userID int64) { committed = append(committed, userID) }
		job := model.Job{ID: "job-1", UserID: 100}

		Convey("When the run succeeds", func() {
			r := service.NewRunner(store, fixedRecommender{recs: []model.ScoredItem{{ItemID: 6, Score: 3}, {ItemID: 8, Score: 2}}}, 5, onCommit)
			fence := worker.NewFence()
			err := r.Run(ctx, job, fence)

			Convey("Then rows are replaced and the user is ready", func() {
				So(err, ShouldBeNil)
				So(fence.Committed(), ShouldBeTrue)
				ready, _ := store.IsReady(ctx, 100)
				So(ready, ShouldBeTrue)
				recs, _ := store.Recommendations(ctx, 100)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].ItemID, ShouldEqual, 6)
				So(committed, ShouldResemble, []int64{100})
			})
		})

		Convey("When scoring fails", func() {
			r := service.NewRunner(store, fixedRecommender{err: errors.New("boom")}, 5, onCommit)
			err := r.Run(ctx, job, worker.NewFence())

			Convey("Then the previous rows are gone and the user is not ready", func() {
				So(err, ShouldNotBeNil)
				ready, _ := store.IsReady(ctx, 100)
				So(ready, ShouldBeFalse)
				recs, _ := store.Recommendations(ctx, 100)
				So(recs, ShouldBeEmpty)
				So(committed, ShouldBeEmpty)
			})
		})

		Convey("When the minimum is higher than the rating count", func() {
			r := service.NewRunner(store, fixedRecommender{}, 6, onCommit)
			err := r.Run(ctx, job, worker.NewFence())

			Convey("Then the job fails as insufficient data", func() {
				So(errors.Is(err, service.ErrInsufficientRatings), ShouldBeTrue)
			})
		})

		Convey("When the fence expired before the run", func() {
			r := service.NewRunner(store, fixedRecommender{recs: []model.ScoredItem{{ItemID: 6, Score: 3}}}, 5, onCommit)
			fence := worker.NewFence()
			fence.Expire()
			err := r.Run(ctx, job, fence)

			Convey("Then nothing is written", func() {
				So(errors.Is(err, worker.ErrFenceExpired), ShouldBeTrue)
				recs, _ := store.Recommendations(ctx, 100)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].ItemID, ShouldEqual, 10)
				So(committed, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an unknown user", t, func() {
		ctx := context.Background()
		store, _ := newFixture(ctx)
		r := service.NewRunner(store, fixedRecommender{}, 5, nil)

		Convey("Then the run fails as not found", func() {
			err := r.Run(ctx, model.Job{ID: "j", UserID: 404}, worker.NewFence())
			So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
		})
	})
}

package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
)

func TestMemoryIndex(t *testing.T) {
	Convey("Given an index with four plots", t, func() {
		idx := NewMemoryIndex()
		So(idx.Add(1, []float64{1, 0}), ShouldBeNil)
		So(idx.Add(2, []float64{1, 0}), ShouldBeNil)
		So(idx.Add(3, []float64{1, 1}), ShouldBeNil)
		So(idx.Add(4, []float64{-1, 0}), ShouldBeNil)
		ctx := context.Background()

		Convey("When querying neighbours of item 1", func() {
			got, err := idx.QueryNearest(ctx, 1, 10)

			Convey("Then self is excluded and results are ranked", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].ItemID, ShouldEqual, 2)
				So(got[0].Score, ShouldAlmostEqual, 1.0, 1e-9)
				So(got[1].ItemID, ShouldEqual, 3)
				So(got[1].Score, ShouldAlmostEqual, 0.7071, 1e-4)
			})

			Convey("Then opposite plots clamp to zero", func() {
				So(got[2].ItemID, ShouldEqual, 4)
				So(got[2].Score, ShouldEqual, 0)
			})
		})

		Convey("When k is smaller than the index", func() {
			got, err := idx.QueryNearest(ctx, 1, 1)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
		})

		Convey("When the item is not indexed", func() {
			got, err := idx.QueryNearest(ctx, 99, 5)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
			So(idx.Missing([]int64{1, 99, 5}), ShouldResemble, []int64{99, 5})
		})

		Convey("When an embedding has the wrong dimension", func() {
			err := idx.Add(5, []float64{1, 2, 3})
			So(errors.Is(err, ErrDimensionMismatch), ShouldBeTrue)
			So(idx.Len(), ShouldEqual, 4)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := idx.QueryNearest(cctx, 1, 3)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

type flakyIndex struct {
	calls atomic.Int32
	err   error
}

func (f *flakyIndex) QueryNearest(context.Context, int64, int) ([]model.ScoredItem, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.ScoredItem{{ItemID: 7, Score: 0.5}}, nil
}

func TestBreakerIndex(t *testing.T) {
	_ = logger.Init()

	Convey("Given a breaker around a failing index", t, func() {
		backend := &flakyIndex{err: errors.New("connection refused")}
		b := NewBreakerIndex(backend, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
		ctx := context.Background()

		Convey("Then failures are reported as unavailable", func() {
			_, err := b.QueryNearest(ctx, 1, 3)
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})

		Convey("When the threshold is reached", func() {
			_, _ = b.QueryNearest(ctx, 1, 3)
			_, _ = b.QueryNearest(ctx, 1, 3)
			_, err := b.QueryNearest(ctx, 1, 3)

			Convey("Then the breaker opens and stops calling the backend", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				So(b.State(), ShouldEqual, "open")
				So(backend.calls.Load(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a breaker around a healthy index", t, func() {
		b := NewBreakerIndex(&flakyIndex{}, BreakerConfig{})

		Convey("Then results pass through", func() {
			got, err := b.QueryNearest(context.Background(), 1, 3)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.ScoredItem{{ItemID: 7, Score: 0.5}})
			So(b.State(), ShouldEqual, "closed")
		})
	})
}

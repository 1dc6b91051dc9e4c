package cache

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func views(ids ...int64) []model.ViewItem {
	out := make([]model.ViewItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.NewViewItem(model.Item{ID: id, Title: "m"}, float64(id)))
	}
	return out
}

func TestMemoryCache(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a cache with capacity 2 and a one minute TTL", t, func() {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		c := NewMemoryCache(WithCapacity(2), WithTTL(time.Minute), WithClock(clock.Now))

		Convey("When a list is put", func() {
			c.Put(ctx, 1, views(10, 11))

			Convey("Then get before the TTL returns the same list", func() {
				got, ok := c.Get(ctx, 1)
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, views(10, 11))
			})

			Convey("Then get after the TTL is a miss and drops the entry", func() {
				clock.Advance(time.Minute)
				_, ok := c.Get(ctx, 1)
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})

			Convey("Then invalidate removes it", func() {
				c.Invalidate(ctx, 1)
				_, ok := c.Get(ctx, 1)
				So(ok, ShouldBeFalse)
			})

			Convey("Then mutating the returned slice does not touch the cache", func() {
				got, _ := c.Get(ctx, 1)
				got[0].Title = "changed"
				again, _ := c.Get(ctx, 1)
				So(again[0].Title, ShouldEqual, "m")
			})
		})

		Convey("When inserting beyond capacity", func() {
			c.Put(ctx, 1, views(1))
			c.Put(ctx, 2, views(2))
			_, _ = c.Get(ctx, 1)
			c.Put(ctx, 3, views(3))

			Convey("Then exactly the least recently used entry is evicted", func() {
				So(c.Len(), ShouldEqual, 2)
				_, ok := c.Get(ctx, 2)
				So(ok, ShouldBeFalse)
				_, ok = c.Get(ctx, 1)
				So(ok, ShouldBeTrue)
				_, ok = c.Get(ctx, 3)
				So(ok, ShouldBeTrue)
				So(c.Stats()["evictions"], ShouldEqual, int64(1))
			})

			Convey("Then each further insert evicts one more", func() {
				c.Put(ctx, 4, views(4))
				c.Put(ctx, 5, views(5))
				So(c.Len(), ShouldEqual, 2)
				So(c.Stats()["evictions"], ShouldEqual, int64(3))
			})
		})

		Convey("When replacing an existing entry", func() {
			c.Put(ctx, 1, views(1))
			clock.Advance(50 * time.Second)
			c.Put(ctx, 1, views(7))
			clock.Advance(50 * time.Second)

			Convey("Then the TTL restarts and no eviction happens", func() {
				got, ok := c.Get(ctx, 1)
				So(ok, ShouldBeTrue)
				So(got[0].ID, ShouldEqual, 7)
				So(c.Stats()["evictions"], ShouldEqual, int64(0))
			})
		})
	})
}

func TestBuildKey(t *testing.T) {
	Convey("Redis keys are namespaced per user", t, func() {
		So(buildKey(42), ShouldEqual, "rec:user:42")
	})
}

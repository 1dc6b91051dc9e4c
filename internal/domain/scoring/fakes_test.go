package scoring_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/okian/cinematch/internal/domain/model"
)

var errIndexDown = errors.New("index down")

type fakeMeta struct {
	directors       map[int64]int64
	actors          map[int64][]int64
	directorItems   map[int64][]int64
	actorItems      map[int64][]int64
	failDirectorFor int64
}

func (m *fakeMeta) DirectorOf(_ context.Context, itemID int64) (int64, bool, error) {
	if itemID == m.failDirectorFor && itemID != 0 {
		return 0, false, errors.New("metadata store unavailable")
	}
	d, ok := m.directors[itemID]
	return d, ok, nil
}

func (m *fakeMeta) ActorsOf(_ context.Context, itemID int64) ([]int64, error) {
	return m.actors[itemID], nil
}

func (m *fakeMeta) ItemsOfDirector(_ context.Context, directorID int64) ([]int64, error) {
	return m.directorItems[directorID], nil
}

func (m *fakeMeta) ItemsOfActor(_ context.Context, actorID int64) ([]int64, error) {
	return m.actorItems[actorID], nil
}

type fakeIndex struct {
	hits   map[int64][]model.ScoredItem
	failed map[int64]bool
	calls  []int
}

func (f *fakeIndex) QueryNearest(_ context.Context, itemID int64, k int) ([]model.ScoredItem, error) {
	f.calls = append(f.calls, k)
	if f.failed[itemID] {
		return nil, errIndexDown
	}
	return f.hits[itemID], nil
}

type fakeSource struct {
	ratings map[int64][]model.Rating
}

func (f *fakeSource) UsersWhoRated(_ context.Context, itemIDs []int64) ([]int64, error) {
	want := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	var users []int64
	for u, rs := range f.ratings {
		for _, r := range rs {
			if want[r.ItemID] {
				users = append(users, u)
				break
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (f *fakeSource) RatingsOf(_ context.Context, userID int64) ([]model.Rating, error) {
	return f.ratings[userID], nil
}

type fakeScorer struct {
	mu       sync.Mutex
	out      []model.ScoredItem
	err      error
	received []float64
}

func (f *fakeScorer) Score(_ context.Context, _ int64, _ []int64, ratings []float64) ([]model.ScoredItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append([]float64(nil), ratings...)
	return f.out, f.err
}

package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/okian/cinematch/internal/domain/model"
)

type userState struct {
	ratings []model.Rating
	ready   bool
	recs    []model.Recommendation
}

// MemoryStore is an in-process Store guarded by a single RWMutex. Every
// multi-step write happens under one lock acquisition.
type MemoryStore struct {
	mu sync.RWMutex

	users map[int64]*userState
	items map[int64]model.Item

	itemDirector  map[int64]int64
	itemActors    map[int64][]int64
	directorItems map[int64][]int64
	actorItems    map[int64][]int64

	raters map[int64]map[int64]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]*userState),
		items:         make(map[int64]model.Item),
		itemDirector:  make(map[int64]int64),
		itemActors:    make(map[int64][]int64),
		directorItems: make(map[int64][]int64),
		actorItems:    make(map[int64][]int64),
		raters:        make(map[int64]map[int64]struct{}),
	}
}

// AddItem registers a movie with its credits. directorID 0 means unknown.
func (s *MemoryStore) AddItem(item model.Item, directorID int64, actorIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = item
	if directorID != 0 {
		s.itemDirector[item.ID] = directorID
		s.directorItems[directorID] = insertSorted(s.directorItems[directorID], item.ID)
	}
	actors := slices.Clone(actorIDs)
	slices.Sort(actors)
	actors = slices.Compact(actors)
	s.itemActors[item.ID] = actors
	for _, a := range actors {
		s.actorItems[a] = insertSorted(s.actorItems[a], item.ID)
	}
}

// Seed loads a catalogue's items and historical ratings.
func (s *MemoryStore) Seed(ctx context.Context, c *Catalog) error {
	for _, it := range c.Items {
		s.AddItem(it.Item(), it.DirectorID, it.ActorIDs)
	}
	byUser := make(map[int64][]model.Rating)
	for _, r := range c.Ratings {
		byUser[r.UserID] = append(byUser[r.UserID], model.Rating{ItemID: r.ItemID, Value: r.Value})
	}
	for user, rs := range byUser {
		if err := s.SaveRatings(ctx, user, rs); err != nil {
			return err
		}
	}
	return nil
}

// SaveRatings replaces the user's ratings and clears the ready flag.
func (s *MemoryStore) SaveRatings(ctx context.Context, userID int64, ratings []model.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &userState{}
		s.users[userID] = u
	}
	for _, r := range u.ratings {
		delete(s.raters[r.ItemID], userID)
	}

	byItem := make(map[int64]float64, len(ratings))
	for _, r := range ratings {
		byItem[r.ItemID] = r.Value
	}
	u.ratings = make([]model.Rating, 0, len(byItem))
	for id, v := range byItem {
		u.ratings = append(u.ratings, model.Rating{ItemID: id, Value: v})
		if s.raters[id] == nil {
			s.raters[id] = make(map[int64]struct{})
		}
		s.raters[id][userID] = struct{}{}
	}
	sort.Slice(u.ratings, func(i, j int) bool { return u.ratings[i].ItemID < u.ratings[j].ItemID })
	u.ready = false
	return nil
}

// RatingsOf returns the user's ratings ordered by item id.
func (s *MemoryStore) RatingsOf(_ context.Context, userID int64) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return slices.Clone(u.ratings), nil
}

// UsersWhoRated returns every user with a rating for any of itemIDs.
func (s *MemoryStore) UsersWhoRated(_ context.Context, itemIDs []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, id := range itemIDs {
		for u := range s.raters[id] {
			seen[u] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	slices.Sort(out)
	return out, nil
}

// IsReady reports the user's ready flag.
func (s *MemoryStore) IsReady(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	return u.ready, nil
}

// InvalidateRecommendations clears the ready flag and drops the rows.
func (s *MemoryStore) InvalidateRecommendations(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.ready = false
	u.recs = nil
	return nil
}

// ReplaceRecommendations swaps in recs and sets the ready flag.
func (s *MemoryStore) ReplaceRecommendations(ctx context.Context, userID int64, recs []model.ScoredItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	rows := make([]model.Recommendation, len(recs))
	for i, r := range recs {
		rows[i] = model.Recommendation{UserID: userID, ItemID: r.ItemID, Score: r.Score}
	}
	sortRecommendations(rows)
	u.recs = rows
	u.ready = true
	return nil
}

// Recommendations returns the persisted rows by score descending.
func (s *MemoryStore) Recommendations(_ context.Context, userID int64) ([]model.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return slices.Clone(u.recs), nil
}

// Items returns the metadata of the known ids.
func (s *MemoryStore) Items(_ context.Context, ids []int64) (map[int64]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]model.Item, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

// UnknownItems returns the ids missing from the catalogue, in input order.
func (s *MemoryStore) UnknownItems(_ context.Context, ids []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []int64
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Genres returns every distinct genre label, sorted.
func (s *MemoryStore) Genres(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, it := range s.items {
		for _, g := range it.Genres {
			seen[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	slices.Sort(out)
	return out, nil
}

// DirectorOf returns the item's director.
func (s *MemoryStore) DirectorOf(_ context.Context, itemID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.itemDirector[itemID]
	return d, ok, nil
}

// ActorsOf returns the item's credited actors.
func (s *MemoryStore) ActorsOf(_ context.Context, itemID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.itemActors[itemID]), nil
}

// ItemsOfDirector returns the items directed by directorID.
func (s *MemoryStore) ItemsOfDirector(_ context.Context, directorID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.directorItems[directorID]), nil
}

// ItemsOfActor returns the items featuring actorID.
func (s *MemoryStore) ItemsOfActor(_ context.Context, actorID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.actorItems[actorID]), nil
}

// Stats returns counts for the stats endpoint.
func (s *MemoryStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{"users": len(s.users), "items": len(s.items)}
}

func insertSorted(ids []int64, id int64) []int64 {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}

func sortRecommendations(rows []model.Recommendation) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ItemID < rows[j].ItemID
	})
}

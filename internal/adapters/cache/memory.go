package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

const (
	defaultCapacity = 1000
	defaultTTL      = 5 * time.Minute
)

type entry struct {
	userID    int64
	items     []model.ViewItem
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// MemoryCache is an LRU cache with a fixed resident-user capacity and a TTL.
// head.next is the most recently used entry, tail.prev the least.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[int64]*entry
	head  *entry
	tail  *entry

	hits      int64
	misses    int64
	evictions int64

	logger logger.Logger
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		capacity: defaultCapacity,
		ttl:      defaultTTL,
		now:      time.Now,
		head:     &entry{},
		tail:     &entry{},
		logger:   logger.Get().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.items = make(map[int64]*entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns a copy of the cached list. Expired entries are removed and
// reported as a miss.
func (c *MemoryCache) Get(_ context.Context, userID int64) ([]model.ViewItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[userID]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss()
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.remove(e)
		c.misses++
		metrics.RecordCacheMiss()
		metrics.UpdateCacheSize(len(c.items))
		return nil, false
	}

	c.moveToFront(e)
	c.hits++
	metrics.RecordCacheHit()
	return slices.Clone(e.items), true
}

// Put stores items for userID, replacing any previous entry. Inserting a new
// user at capacity evicts the least recently used one.
func (c *MemoryCache) Put(_ context.Context, userID int64, items []model.ViewItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if e, ok := c.items[userID]; ok {
		e.items = slices.Clone(items)
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{userID: userID, items: slices.Clone(items), expiresAt: expiresAt}
	c.addToFront(e)
	c.items[userID] = e

	if len(c.items) > c.capacity {
		c.evictOldest()
	}
	metrics.UpdateCacheSize(len(c.items))
}

// Invalidate drops userID's entry if present.
func (c *MemoryCache) Invalidate(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[userID]; ok {
		c.remove(e)
		metrics.RecordCacheInvalidation()
		metrics.UpdateCacheSize(len(c.items))
	}
}

// Len returns the number of resident entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit, miss and eviction counters.
func (c *MemoryCache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"size":      len(c.items),
		"capacity":  c.capacity,
		"hits":      c.hits,
		"misses":    c.misses,
		"evictions": c.evictions,
	}
}

func (c *MemoryCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *MemoryCache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *MemoryCache) moveToFront(e *entry) {
	c.unlink(e)
	c.addToFront(e)
}

func (c *MemoryCache) remove(e *entry) {
	c.unlink(e)
	delete(c.items, e.userID)
}

func (c *MemoryCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.remove(oldest)
	c.evictions++
	metrics.RecordCacheEviction()
	c.logger.Debug(context.Background(), "evicted cache entry", logger.Int64("user_id", oldest.userID))
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// RedisCache keeps views in redis. Capacity is left to the server's
// maxmemory policy; only the TTL is enforced here.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    defaultTTL,
		logger: logger.Get().Named("redis-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func buildKey(userID int64) string {
	return fmt.Sprintf("rec:user:%d", userID)
}

// Get reads and decodes the user's views. Redis failures are logged and
// treated as a miss.
func (c *RedisCache) Get(ctx context.Context, userID int64) ([]model.ViewItem, bool) {
	key := buildKey(userID)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, false
	}
	if err != nil {
		c.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "read")
		metrics.RecordCacheMiss()
		return nil, false
	}

	var items []model.ViewItem
	if err := json.Unmarshal(val, &items); err != nil {
		c.logger.Warn(ctx, "cache entry undecodable", logger.String("key", key), logger.Error(err))
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return items, true
}

// Put encodes items and stores them with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, userID int64, items []model.ViewItem) {
	key := buildKey(userID)
	val, err := json.Marshal(items)
	if err != nil {
		c.logger.Error(ctx, "failed to marshal recommendations", logger.String("key", key), logger.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "write")
	}
}

// Invalidate deletes the user's key.
func (c *RedisCache) Invalidate(ctx context.Context, userID int64) {
	key := buildKey(userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn(ctx, "cache delete failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "delete")
		return
	}
	metrics.RecordCacheInvalidation()
}

// Len returns the number of recommendation keys, or -1 if redis cannot be reached.
func (c *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n := 0
	iter := c.client.Scan(ctx, 0, "rec:user:*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return -1
	}
	return n
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

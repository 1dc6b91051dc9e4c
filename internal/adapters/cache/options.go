package cache

import (
	"time"

	"github.com/okian/cinematch/pkg/logger"
)

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithCapacity sets the maximum number of resident users.
func WithCapacity(n int) Option {
	return func(c *MemoryCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets how long an entry stays valid after Put.
func WithTTL(d time.Duration) Option {
	return func(c *MemoryCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *MemoryCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisTTL sets the key expiry.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(c *RedisCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

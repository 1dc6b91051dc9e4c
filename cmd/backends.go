package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cinematch/internal/adapters/cache"
	"github.com/okian/cinematch/internal/adapters/index"
	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/internal/config"
	"github.com/okian/cinematch/pkg/logger"
)

// backends holds the collaborators selected by configuration.
type backends struct {
	store repository.Store
	index index.Index
	cache cache.Cache

	closers []func()
}

// Close releases pools and clients in reverse order of creation.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	log := logger.Get().Named("bootstrap")
	b := &backends{}

	var catalog *repository.Catalog
	if cfg.CatalogPath != "" {
		c, err := repository.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = c
		log.Info(ctx, "catalog loaded",
			logger.String("path", cfg.CatalogPath),
			logger.Int("items", len(c.Items)),
			logger.Int("ratings", len(c.Ratings)),
		)
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		store, closeFn, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, closeFn)
		if catalog != nil {
			if err := store.Seed(ctx, catalog); err != nil {
				b.Close()
				return nil, fmt.Errorf("seed postgres: %w", err)
			}
		}
		b.store = store
		log.Info(ctx, "using postgres store")
	default:
		store := repository.NewMemoryStore()
		if catalog != nil {
			if err := store.Seed(ctx, catalog); err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		b.store = store
		log.Info(ctx, "using memory store")
	}

	idx, err := buildIndex(catalog)
	if err != nil {
		b.Close()
		return nil, err
	}
	if catalog != nil {
		ids := make([]int64, 0, len(catalog.Items))
		for _, it := range catalog.Items {
			ids = append(ids, it.ID)
		}
		if missing := idx.Missing(ids); len(missing) > 0 {
			log.Warn(ctx, "some items have no plot embedding",
				logger.Int("indexed", idx.Len()),
				logger.Int("missing", len(missing)),
			)
		}
	}
	b.index = index.NewBreakerIndex(idx, index.BreakerConfig{
		FailureThreshold: uint32(cfg.BreakerFailureThreshold), //nolint:gosec // validated positive
		OpenTimeout:      cfg.BreakerOpen(),
	})

	switch cfg.CacheBackend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("parse redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		b.closers = append(b.closers, func() { _ = client.Close() })
		rc := cache.NewRedisCache(client, cache.WithRedisTTL(cfg.CacheTTL()))
		if err := rc.Ping(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.cache = rc
		log.Info(ctx, "using redis cache")
	default:
		b.cache = cache.NewMemoryCache(
			cache.WithCapacity(cfg.CacheMaxUsers),
			cache.WithTTL(cfg.CacheTTL()),
		)
		log.Info(ctx, "using memory cache", logger.Int("capacity", cfg.CacheMaxUsers))
	}

	return b, nil
}

func buildIndex(catalog *repository.Catalog) (*index.MemoryIndex, error) {
	idx := index.NewMemoryIndex()
	if catalog == nil {
		return idx, nil
	}
	for _, it := range catalog.Items {
		if len(it.Embedding) == 0 {
			continue
		}
		if err := idx.Add(it.ID, it.Embedding); err != nil {
			return nil, fmt.Errorf("index item %d: %w", it.ID, err)
		}
	}
	return idx, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*repository.PostgresStore, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database_url: %w", err)
	}
	if cfg.DBPoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.DBPoolSize) //nolint:gosec // small configured value
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	store := repository.NewPostgresStore(pool)
	if err := store.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return store, pool.Close, nil
}

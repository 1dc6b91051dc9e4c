// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"
)

// Backend names accepted by StoreBackend and CacheBackend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Weights groups the scoring pipeline parameters.
type Weights struct {
	// User and Content weight the collaborative and content signals in the final sum.
	User    float64 `koanf:"user"`
	Content float64 `koanf:"content"`

	// Director, Actor and Plot weight the three content sub-signals.
	Director float64 `koanf:"director"`
	Actor    float64 `koanf:"actor"`
	Plot     float64 `koanf:"plot"`

	// DefaultRating fills neighbour vectors for items the neighbour did not rate.
	DefaultRating float64 `koanf:"default_rating"`

	// RatingMidpoint is the centre of the cubic normalization.
	RatingMidpoint float64 `koanf:"rating_midpoint"`

	// PlotNeighbors is K for the nearest-plot query.
	PlotNeighbors int `koanf:"plot_neighbors"`

	// ClosestUsers is N for the collaborative neighbourhood.
	ClosestUsers int `koanf:"closest_users"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// JobTimeoutSeconds is the hard per-job execution limit.
	JobTimeoutSeconds int `koanf:"job_timeout_seconds"`

	// QueueCapacity bounds the job FIFO; enqueue beyond it is rejected.
	QueueCapacity int `koanf:"queue_capacity"`

	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`
	CacheMaxUsers   int    `koanf:"cache_max_users"`
	CacheBackend    string `koanf:"cache_backend"`
	RedisURL        string `koanf:"redis_url"`

	StoreBackend string `koanf:"store_backend"`
	DatabaseURL  string `koanf:"database_url"`
	DBPoolSize   int    `koanf:"db_pool_size"`

	// CatalogPath points at a JSON catalog used to seed the memory store.
	CatalogPath string `koanf:"catalog_path"`

	// MinScore is the viability threshold; only strictly greater scores are shown.
	MinScore float64 `koanf:"min_score"`

	// MaxRecommendations truncates the displayed list.
	MaxRecommendations int `koanf:"max_recommendations"`

	// MinRatings is the smallest rating set a job accepts.
	MinRatings int `koanf:"min_ratings"`

	RatingMin float64 `koanf:"rating_min"`
	RatingMax float64 `koanf:"rating_max"`

	// CORSAllowedOrigins lists the browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// SubmitRatePerMinute limits rating submissions per client IP. Zero disables it.
	SubmitRatePerMinute int `koanf:"submit_rate_per_minute"`

	// BreakerFailureThreshold consecutive index failures open the breaker
	// for BreakerOpenSeconds.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`
	BreakerOpenSeconds      int `koanf:"breaker_open_seconds"`

	Weights Weights `koanf:"weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		JobTimeoutSeconds:       10,
		QueueCapacity:           1000,
		CacheTTLSeconds:         300,
		CacheMaxUsers:           1000,
		CacheBackend:            BackendMemory,
		StoreBackend:            BackendMemory,
		DBPoolSize:              10,
		MinScore:                0,
		MaxRecommendations:      50,
		MinRatings:              5,
		RatingMin:               0.5,
		RatingMax:               5.0,
		CORSAllowedOrigins:      []string{"*"},
		SubmitRatePerMinute:     60,
		BreakerFailureThreshold: 5,
		BreakerOpenSeconds:      30,
		Weights: Weights{
			User:           1.2,
			Content:        4,
			Director:       1,
			Actor:          0.2,
			Plot:           1.2,
			DefaultRating:  3,
			RatingMidpoint: 2.5,
			PlotNeighbors:  10,
			ClosestUsers:   5,
		},
	}
}

// JobTimeout returns JobTimeoutSeconds as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// BreakerOpen returns BreakerOpenSeconds as a duration.
func (c *Config) BreakerOpen() time.Duration {
	return time.Duration(c.BreakerOpenSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.JobTimeoutSeconds <= 0:
		return fmt.Errorf("%w: job_timeout_seconds must be positive", ErrInvalidConfig)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("%w: queue_capacity must be positive", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.CacheMaxUsers <= 0:
		return fmt.Errorf("%w: cache_max_users must be positive", ErrInvalidConfig)
	case c.MaxRecommendations <= 0:
		return fmt.Errorf("%w: max_recommendations must be positive", ErrInvalidConfig)
	case c.MinRatings < 1:
		return fmt.Errorf("%w: min_ratings must be at least 1", ErrInvalidConfig)
	case c.RatingMin >= c.RatingMax:
		return fmt.Errorf("%w: rating_min must be below rating_max", ErrInvalidConfig)
	case c.Weights.PlotNeighbors <= 0 || c.Weights.ClosestUsers <= 0:
		return fmt.Errorf("%w: weights.plot_neighbors and weights.closest_users must be positive", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}
	return nil
}

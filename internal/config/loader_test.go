package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/cinematch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueCapacity, convey.ShouldEqual, 1000)
				convey.So(cfg.JobTimeoutSeconds, convey.ShouldEqual, 10)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CINEMATCH_ADDR", ":8080")
			_ = os.Setenv("CINEMATCH_QUEUE_CAPACITY", "64")
			_ = os.Setenv("CINEMATCH_JOB_TIMEOUT_SECONDS", "3")
			_ = os.Setenv("CINEMATCH_MIN_SCORE", "0.5")
			_ = os.Setenv("CINEMATCH_WEIGHTS__USER", "2.5")
			_ = os.Setenv("CINEMATCH_WEIGHTS__CLOSEST_USERS", "7")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueCapacity, convey.ShouldEqual, 64)
				convey.So(cfg.JobTimeoutSeconds, convey.ShouldEqual, 3)
				convey.So(cfg.MinScore, convey.ShouldEqual, 0.5)
			})

			convey.Convey("Then double underscores reach nested weights", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Weights.User, convey.ShouldEqual, 2.5)
				convey.So(cfg.Weights.ClosestUsers, convey.ShouldEqual, 7)
				convey.So(cfg.Weights.Content, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_capacity: 250
cache_ttl_seconds: 60
max_recommendations: 20
weights:
  content: 3
  plot_neighbors: 12
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueCapacity, convey.ShouldEqual, 250)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.MaxRecommendations, convey.ShouldEqual, 20)
				convey.So(cfg.Weights.Content, convey.ShouldEqual, 3)
				convey.So(cfg.Weights.PlotNeighbors, convey.ShouldEqual, 12)
				convey.So(cfg.Weights.User, convey.ShouldEqual, 1.2)
				convey.So(cfg.MinRatings, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nqueue_capacity: 250\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)
			_ = os.Setenv("CINEMATCH_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueCapacity, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CINEMATCH_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CINEMATCH_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CINEMATCH_QUEUE_CAPACITY", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the postgres backend is chosen without a DSN", func() {
			_ = os.Setenv("CINEMATCH_STORE_BACKEND", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "database_url")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CINEMATCH_CONFIG",
		"CINEMATCH_ADDR",
		"CINEMATCH_QUEUE_CAPACITY",
		"CINEMATCH_JOB_TIMEOUT_SECONDS",
		"CINEMATCH_MIN_SCORE",
		"CINEMATCH_STORE_BACKEND",
		"CINEMATCH_WEIGHTS__USER",
		"CINEMATCH_WEIGHTS__CLOSEST_USERS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cinematch-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}

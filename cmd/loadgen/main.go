package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/cinematch/internal/loadgen"
)

// Default configuration constants.
const (
	defaultUsers          = 200
	defaultFirstUser      = 100000
	defaultRatingsPerUser = 10
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultJobDeadline    = 2 * time.Minute
	defaultPollInterval   = 100 * time.Millisecond
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		catalog   = flag.String("catalog", "", "Catalogue JSON the ratings are drawn from")
		users     = flag.Int("users", defaultUsers, "Number of synthetic users")
		firstUser = flag.Int64("first-user", defaultFirstUser, "Id of the first synthetic user")
		ratings   = flag.Int("ratings", defaultRatingsPerUser, "Ratings per user")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		submitRPS = flag.Float64("rate", 0, "Submissions per second, 0 for unlimited")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		deadline  = flag.Duration("deadline", defaultJobDeadline, "How long to wait for all jobs")
		seed      = flag.Uint64("seed", 1, "Generator seed")
		logFile   = flag.String("log", "", "Log file (default: loadgen_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *catalog == "" {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:        *baseURL,
		CatalogPath:    *catalog,
		Users:          *users,
		FirstUserID:    *firstUser,
		RatingsPerUser: *ratings,
		Workers:        *workers,
		Rate:           *submitRPS,
		Timeout:        *timeout,
		JobDeadline:    *deadline,
		PollInterval:   defaultPollInterval,
		Seed:           *seed,
		Verbose:        *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

package loadgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/cinematch/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and to logFile.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), "text"); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Cinematch Load Generator
========================

Submits generated rating sets, waits for the recommendation jobs and
checks the served lists.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -catalog string
        Catalogue JSON the ratings are drawn from (required)
  -users int
        Number of synthetic users (default 200)
  -first-user int
        Id of the first synthetic user (default 100000)
  -ratings int
        Ratings per user (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -rate float
        Submissions per second, 0 for unlimited (default 0)
  -timeout duration
        HTTP request timeout (default 30s)
  -deadline duration
        How long to wait for all jobs (default 2m)
  -seed uint
        Generator seed (default 1)
  -log string
        Log file (default: loadgen_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -catalog testdata/catalog.json
  go run ./cmd/loadgen -catalog testdata/catalog.json -users 5000 -workers 32
`)
}

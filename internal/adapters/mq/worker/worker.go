// Package worker drains the job queue one job at a time under a hard
// per-job timeout.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

const defaultJobTimeout = 10 * time.Second

// Runner executes one job. All shared writes must go through fence so that
// a run abandoned after its timeout cannot publish results.
type Runner interface {
	Run(ctx context.Context, job model.Job, fence *Fence) error
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Stats is a snapshot of worker counters.
type Stats struct {
	Processed int64 `json:"processed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
	Abandoned int64 `json:"abandoned_running"`
}

// Worker is the single consumer of a job queue.
type Worker struct {
	queue    Queue
	runner   Runner
	statuses *StatusStore
	timeout  time.Duration
	name     string

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64
	abandoned atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker that records job transitions in statuses.
func NewWorker(queue Queue, runner Runner, statuses *StatusStore, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		runner:   runner,
		statuses: statuses,
		timeout:  defaultJobTimeout,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run processes jobs until the queue is closed and drained, Shutdown is
// called, or ctx is canceled. A job in progress always reaches a final
// status before Run returns.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				w.logger.Info(ctx, "queue closed, worker exiting")
				return
			}
			w.process(ctx, job)
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker after the job in progress, without draining.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
		TimedOut:  w.timedOut.Load(),
		Abandoned: w.abandoned.Load(),
	}
}

func (w *Worker) process(ctx context.Context, job model.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	w.statuses.Start(job.ID, start)
	metrics.SetJobRunning(true)
	defer metrics.SetJobRunning(false)

	log := w.logger.With(logger.String("job_id", job.ID), logger.Int64("user_id", job.UserID))
	log.Debug(ctx, "job running")

	err := w.execute(ctx, job)
	elapsed := time.Since(start)
	w.processed.Add(1)

	status := model.JobSuccess
	errMsg := ""
	if err != nil {
		status = model.JobError
		errMsg = err.Error()
		w.failed.Add(1)
		metrics.RecordErrorByComponent("worker", errorType(err))
		log.Error(ctx, "job failed", logger.Duration("elapsed", elapsed), logger.Error(err))
	} else {
		w.succeeded.Add(1)
		log.Info(ctx, "job succeeded", logger.Duration("elapsed", elapsed))
	}

	w.statuses.Finish(job.ID, status, errMsg, time.Now())
	metrics.RecordJobFinished(string(status), float64(elapsed.Milliseconds()))
}

// execute runs the job in its own goroutine and stops waiting for it at the
// deadline. An abandoned runner keeps going until it returns, but its fence
// is expired so it can no longer write.
func (w *Worker) execute(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: Job is passed by value
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	fence := NewFence()
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("%w: %v", ErrRunnerPanic, r)
			}
		}()
		result <- w.runner.Run(runCtx, job, fence)
	}()

	select {
	case err := <-result:
		return err
	case <-runCtx.Done():
	}

	if !fence.Expire() {
		// The commit won the race against the deadline.
		return nil
	}

	w.abandon(result)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		w.timedOut.Add(1)
		metrics.RecordJobTimeout()
		return fmt.Errorf("%w after %s", ErrJobTimeout, w.timeout)
	}
	return fmt.Errorf("job canceled: %w", runCtx.Err())
}

func (w *Worker) abandon(result <-chan error) {
	w.abandoned.Add(1)
	metrics.AddAbandonedRunners(1)
	go func() {
		<-result
		w.abandoned.Add(-1)
		metrics.AddAbandonedRunners(-1)
	}()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrJobTimeout):
		return "timeout"
	case errors.Is(err, ErrRunnerPanic):
		return "panic"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "job_error"
	}
}

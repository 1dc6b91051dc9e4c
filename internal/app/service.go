// Package service wires the recommendation pipeline together and exposes
// the operations the HTTP API depends on.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/cinematch/internal/adapters/cache"
	"github.com/okian/cinematch/internal/adapters/index"
	"github.com/okian/cinematch/internal/adapters/mq/queue"
	"github.com/okian/cinematch/internal/adapters/mq/worker"
	"github.com/okian/cinematch/internal/adapters/repository"
	"github.com/okian/cinematch/internal/config"
	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/internal/domain/scoring"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// PollResult is the caller view of a job. A finished job is either Ready or
// not OK.
type PollResult struct {
	Status model.JobStatus `json:"status"`
	Ready  bool            `json:"ready"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
}

// Service owns the job queue, the worker and the result cache.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store  repository.Store
	index  scoring.Neighbors
	cache  cache.Cache
	runner worker.Runner

	// Pipeline
	queue    *queue.InMemoryQueue
	statuses *worker.StatusStore
	worker   *worker.Worker
	validate *validator.Validate

	// Configuration
	queueSize          int
	jobTimeout         time.Duration
	minRatings         int
	ratingMin          float64
	ratingMax          float64
	minScore           float64
	maxRecommendations int
	weights            config.Weights

	// cache generations guard against putting a view read before an invalidation
	genMu sync.Mutex
	gens  map[int64]uint64

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Collaborators not supplied default to in-memory
// implementations.
func New(opts ...Option) *Service {
	d := config.New()
	s := &Service{
		queueSize:          d.QueueCapacity,
		jobTimeout:         d.JobTimeout(),
		minRatings:         d.MinRatings,
		ratingMin:          d.RatingMin,
		ratingMax:          d.RatingMax,
		minScore:           d.MinScore,
		maxRecommendations: d.MaxRecommendations,
		weights:            d.Weights,
		statuses:           worker.NewStatusStore(),
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		gens:               make(map[int64]uint64),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.index == nil {
		s.index = index.NewMemoryIndex()
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache()
	}
	return s
}

// Start creates the queue and launches the single worker. The worker
// outlives ctx cancellation; use Stop to end it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting recommendation service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	runner := s.runner
	if runner == nil {
		runner = NewRunner(s.store, s.newCombiner(), s.minRatings, s.invalidate)
	}
	s.worker = worker.NewWorker(s.queue, runner, s.statuses,
		worker.WithTimeout(s.jobTimeout),
		worker.WithLogger(s.logger.Named("worker")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("queueSize", s.queueSize),
		logger.Duration("jobTimeout", s.jobTimeout),
		logger.Int("minRatings", s.minRatings),
	)
	return nil
}

// Stop closes the queue, lets the worker drain the jobs already queued and
// waits for it until ctx expires. After that the worker is told to stop
// after its current job.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping recommendation service...")

	_ = s.queue.Close()

	var err error
	select {
	case <-s.worker.Done():
	case <-ctx.Done():
		s.logger.Warn(ctx, "queue not drained before deadline", logger.Int("remaining", s.queue.Len(ctx)))
		s.cancel()
		err = s.worker.Shutdown(context.WithoutCancel(ctx))
	}
	s.cancel()

	// Jobs still queued, or taken off the queue but never started, will not
	// run on this worker.
	if n := s.statuses.FailWaiting(ErrStoppedBeforeRun.Error(), time.Now()); n > 0 {
		metrics.RecordErrorByComponent("service", "unprocessed_job")
		s.logger.Warn(ctx, "unprocessed jobs marked failed", logger.Int("jobs", n))
	}

	s.started = false
	s.logger.Info(ctx, "recommendation service stopped")
	return err
}

func (s *Service) newCombiner() *scoring.Combiner {
	w := s.weights
	content := scoring.NewContentScorer(s.store, s.index,
		scoring.WithSignalWeights(w.Director, w.Actor, w.Plot),
		scoring.WithPlotNeighbors(w.PlotNeighbors),
	)
	collaborative := scoring.NewCollaborativeScorer(s.store,
		scoring.WithClosestUsers(w.ClosestUsers),
		scoring.WithNeutralRating(w.DefaultRating),
		scoring.WithCollaborativeMidpoint(w.RatingMidpoint),
	)
	return scoring.NewCombiner(collaborative, content,
		scoring.WithWeights(w.User, w.Content),
		scoring.WithMidpoint(w.RatingMidpoint),
	)
}

// SubmitRatings replaces the user's ratings and schedules a recomputation.
// Input errors are returned before anything is persisted or enqueued.
func (s *Service) SubmitRatings(ctx context.Context, userID int64, ratings []model.Rating) (string, error) {
	if !s.isStarted() {
		return "", ErrNotStarted
	}
	if err := s.validateRatings(ctx, userID, ratings); err != nil {
		metrics.RecordJobRejected("invalid_input")
		return "", err
	}

	if err := s.store.SaveRatings(ctx, userID, ratings); err != nil {
		return "", fmt.Errorf("save ratings: %w", err)
	}
	s.invalidate(ctx, userID)

	return s.Enqueue(ctx, userID)
}

// Enqueue schedules a recomputation for userID and returns its job id.
func (s *Service) Enqueue(ctx context.Context, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	job := model.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    model.JobWaiting,
		CreatedAt: time.Now(),
	}
	s.statuses.Put(job)

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.statuses.Delete(job.ID)
		s.logger.Warn(ctx, "job rejected",
			logger.Int64("user_id", userID),
			logger.Error(err),
		)
		return "", err
	}

	s.logger.Debug(ctx, "job enqueued",
		logger.String("job_id", job.ID),
		logger.Int64("user_id", userID),
	)
	return job.ID, nil
}

// Status returns the job status, JobNotFound for unknown ids.
func (s *Service) Status(jobID string) model.JobStatus {
	return s.statuses.Status(jobID)
}

// PollStatus reports Ready once the job has committed its recommendations
// and OK until it fails. Failure details stay in the logs.
func (s *Service) PollStatus(_ context.Context, jobID string) (PollResult, error) {
	job, ok := s.statuses.Get(jobID)
	if !ok {
		return PollResult{Status: model.JobNotFound}, ErrJobNotFound
	}

	res := PollResult{
		Status: job.Status,
		Ready:  job.Status == model.JobSuccess,
		OK:     job.Status != model.JobError,
	}
	if !res.OK {
		res.Error = FailedJobMessage
	}
	return res, nil
}

// GetRecommendations returns the user's viable recommendations, optionally
// narrowed to items carrying every genre in facets, truncated for display.
func (s *Service) GetRecommendations(ctx context.Context, userID int64, facets []string) ([]model.ViewItem, error) {
	keys, err := s.resolveFacets(ctx, facets)
	if err != nil {
		return nil, err
	}

	ratings, err := s.store.RatingsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ratings) < s.minRatings {
		return nil, fmt.Errorf("%w: user %d has %d ratings", ErrInsufficientRatings, userID, len(ratings))
	}

	ready, err := s.store.IsReady(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrNotReady
	}

	views, ok := s.cache.Get(ctx, userID)
	if !ok {
		views, err = s.loadViews(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	return s.present(views, keys), nil
}

// loadViews builds the cached view from persisted rows and caches it unless
// the user was invalidated meanwhile.
func (s *Service) loadViews(ctx context.Context, userID int64) ([]model.ViewItem, error) {
	gen := s.generation(userID)

	recs, err := s.store.Recommendations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}

	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		if r.Score > s.minScore {
			ids = append(ids, r.ItemID)
		}
	}
	items, err := s.store.Items(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	views := make([]model.ViewItem, 0, len(ids))
	for _, r := range recs {
		if r.Score <= s.minScore {
			continue
		}
		it, ok := items[r.ItemID]
		if !ok {
			s.logger.Warn(ctx, "recommended item missing from catalogue", logger.Int64("item_id", r.ItemID))
			continue
		}
		views = append(views, model.NewViewItem(it, r.Score))
	}

	s.putIfCurrent(ctx, userID, gen, views)
	return views, nil
}

func (s *Service) present(views []model.ViewItem, keys []string) []model.ViewItem {
	out := make([]model.ViewItem, 0, min(len(views), s.maxRecommendations))
	for _, v := range views {
		if len(out) == s.maxRecommendations {
			break
		}
		if v.HasGenres(keys) {
			out = append(out, v)
		}
	}
	return out
}

// Genres returns the facet catalogue sorted by label, without the
// no-genre placeholder.
func (s *Service) Genres(ctx context.Context) ([]model.Genre, error) {
	labels, err := s.store.Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	out := make([]model.Genre, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == model.NoGenres {
			continue
		}
		k := model.GenreKey(l)
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, model.Genre{Key: k, Label: l})
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	s.genMu.Lock()
	s.gens[userID]++
	s.genMu.Unlock()
	s.cache.Invalidate(ctx, userID)
}

// putIfCurrent caches views only if userID was not invalidated since gen.
// The check and the put share genMu so an invalidation cannot land between them.
func (s *Service) putIfCurrent(ctx context.Context, userID int64, gen uint64, views []model.ViewItem) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[userID] != gen {
		return false
	}
	s.cache.Put(ctx, userID, views)
	return true
}

func (s *Service) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	jobs := make(map[string]int)
	for status, n := range s.statuses.Counts() {
		jobs[string(status)] = n
	}
	stats := map[string]any{
		"started":       s.started,
		"queueCapacity": s.queueSize,
		"jobTimeout":    s.jobTimeout.String(),
		"jobs":          jobs,
		"cacheSize":     s.cache.Len(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["worker"] = s.worker.Stats()
	}
	if sp, ok := s.store.(interface{ Stats() map[string]int }); ok {
		stats["store"] = sp.Stats()
	}
	if cs, ok := s.cache.(interface{ Stats() map[string]any }); ok {
		stats["cache"] = cs.Stats()
	}
	return stats
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/okian/cinematch/internal/adapters/http/swagger"
	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/domain/model"
)

const defaultRequestTimeout = 15 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RatingsDependencies
	JobsDependencies
	RecommendationsDependencies
}

// Server wires HTTP routes for the recommendation API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	ratingsHandler         *RatingsHandler
	jobsHandler            *JobsHandler
	recommendationsHandler *RecommendationsHandler

	submitPerMinute int
	requestTimeout  time.Duration
	allowedOrigins  []string
}

// Option configures a Server.
type Option func(*Server)

// WithSubmitRate limits rating submissions per client IP. Zero disables the limit.
func WithSubmitRate(perMinute int) Option {
	return func(s *Server) {
		if perMinute >= 0 {
			s.submitPerMinute = perMinute
		}
	}
}

// WithAllowedOrigins sets the CORS origins. Empty keeps the default "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithRequestTimeout bounds the handling time of each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(statsProvider),
		ratingsHandler:         NewRatingsHandler(deps),
		jobsHandler:            NewJobsHandler(deps),
		recommendationsHandler: NewRecommendationsHandler(deps),
		requestTimeout:         defaultRequestTimeout,
		allowedOrigins:         []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/genres", MetricsMiddleware(s.recommendationsHandler.HandleGetGenres, "genres"))
	r.Get("/jobs/{jobID}", MetricsMiddleware(s.jobsHandler.HandleGetJob, "jobs"))
	swagger.Register(r)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.With(s.submitLimiter()).Post("/ratings",
			MetricsMiddleware(s.ratingsHandler.HandlePostRatings, "ratings"))
		r.Get("/recommendations",
			MetricsMiddleware(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
	})
	return r
}

func (s *Server) submitLimiter() func(http.Handler) http.Handler {
	if s.submitPerMinute == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(s.submitPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		}),
	)
}

// RatingsDependencies is what the submission endpoint needs.
type RatingsDependencies interface {
	SubmitRatings(ctx context.Context, userID int64, ratings []model.Rating) (string, error)
}

// JobsDependencies is what the polling endpoint needs.
type JobsDependencies interface {
	PollStatus(ctx context.Context, jobID string) (service.PollResult, error)
}

// RecommendationsDependencies is what the read endpoints need.
type RecommendationsDependencies interface {
	GetRecommendations(ctx context.Context, userID int64, facets []string) ([]model.ViewItem, error)
	Genres(ctx context.Context) ([]model.Genre, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

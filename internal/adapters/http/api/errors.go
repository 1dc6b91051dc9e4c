package api

import (
	"errors"
	"net/http"

	"github.com/okian/cinematch/internal/adapters/mq/queue"
	"github.com/okian/cinematch/internal/adapters/repository"
	service "github.com/okian/cinematch/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("too many submissions")
)

// classify maps a service error to a status code and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrStopped), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "job_not_found"
	case errors.Is(err, service.ErrNotReady):
		return http.StatusConflict, "not_ready"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError writes err with its mapped status. Internal errors are
// not echoed to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

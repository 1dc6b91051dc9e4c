package service

import "errors"

// ErrInput is wrapped by every caller-correctable error.
var ErrInput = errors.New("invalid input")

// Input errors. Each wraps ErrInput.
var (
	ErrInvalidRatings      = inputError("invalid ratings")
	ErrUnknownItem         = inputError("unknown item")
	ErrInsufficientRatings = inputError("insufficient ratings")
	ErrUnknownGenre        = inputError("unknown genre")
)

var (
	// ErrNotStarted is returned by operations that need the worker running.
	ErrNotStarted = errors.New("service not started")

	// ErrNotReady means the user has no valid recommendations right now.
	ErrNotReady = errors.New("recommendations not ready")

	// ErrJobNotFound is returned when polling an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrStoppedBeforeRun is recorded on jobs the service stopped before running.
	ErrStoppedBeforeRun = errors.New("service stopped before the job ran")
)

// FailedJobMessage is the only error detail exposed for failed jobs.
const FailedJobMessage = "recommendation computation failed"

type inputErr struct{ msg string }

func (e *inputErr) Error() string        { return e.msg }
func (e *inputErr) Is(target error) bool { return target == ErrInput }

func inputError(msg string) error { return &inputErr{msg: msg} }

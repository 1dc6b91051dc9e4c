package index

import "errors"

// Sentinel kinds for index errors.
var (
	// ErrUnavailable is returned while the breaker is open or the backend fails.
	ErrUnavailable = errors.New("similarity index unavailable")

	// ErrDimensionMismatch is returned when an embedding has the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

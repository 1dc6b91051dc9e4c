package scoring

import "errors"

// Sentinel errors returned by the scorers.
var (
	// ErrLengthMismatch is returned when items and ratings differ in length.
	ErrLengthMismatch = errors.New("items and ratings length mismatch")

	// ErrNoRatings is returned when a recommendation is requested without input.
	ErrNoRatings = errors.New("no ratings to score")
)

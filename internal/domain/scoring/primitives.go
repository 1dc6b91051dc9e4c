// Package scoring computes movie recommendations from a user's ratings.
//
// Two independent signals are produced: a content signal built from
// director, actor and plot similarity, and a collaborative signal built
// from the ratings of the closest overlapping users. The Combiner merges
// them into one deterministic ranking.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize centres v on mid and cubes it, amplifying strong preferences
// while keeping the sign.
func Normalize(v, mid float64) float64 {
	return math.Pow(v-mid, 3)
}

// Distance is the Euclidean distance between two equal-length vectors.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Package model contains domain models passed between layers.
package model

// Rating is one user's explicit score for one item on the configured scale.
type Rating struct {
	ItemID int64   `json:"item_id" validate:"required,gt=0"`
	Value  float64 `json:"rating"`
}

// ScoredItem pairs an item with a computed score or similarity.
type ScoredItem struct {
	ItemID int64
	Score  float64
}

// Recommendation is one persisted output row of a job.
type Recommendation struct {
	UserID int64
	ItemID int64
	Score  float64
}

// ItemIDs returns the item ids of ratings in their original order.
func ItemIDs(ratings []Rating) []int64 {
	ids := make([]int64, len(ratings))
	for i, r := range ratings {
		ids[i] = r.ItemID
	}
	return ids
}

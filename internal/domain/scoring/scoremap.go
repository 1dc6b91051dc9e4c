package scoring

import (
	"cmp"
	"slices"

	"github.com/okian/cinematch/internal/domain/model"
)

// ScoreMap accumulates a float score per candidate item.
type ScoreMap map[int64]float64

// Add accumulates v onto id.
func (m ScoreMap) Add(id int64, v float64) {
	m[id] += v
}

// Get returns the score of id or zero when absent.
func (m ScoreMap) Get(id int64) float64 {
	return m[id]
}

// Merge adds every entry of other scaled by weight.
func (m ScoreMap) Merge(other ScoreMap, weight float64) {
	for id, v := range other {
		m[id] += v * weight
	}
}

// Ranked returns the entries sorted by score descending, then item id
// ascending. Items in exclude are skipped, and when positiveOnly is set
// only strictly positive scores are kept.
func (m ScoreMap) Ranked(exclude map[int64]struct{}, positiveOnly bool) []model.ScoredItem {
	out := make([]model.ScoredItem, 0, len(m))
	for id, v := range m {
		if _, skip := exclude[id]; skip {
			continue
		}
		if positiveOnly && v <= 0 {
			continue
		}
		out = append(out, model.ScoredItem{ItemID: id, Score: v})
	}
	slices.SortFunc(out, compareScored)
	return out
}

func compareScored(a, b model.ScoredItem) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.ItemID, b.ItemID)
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

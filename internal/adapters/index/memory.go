// Package index answers nearest-plot queries over movie embeddings.
package index

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/cinematch/internal/domain/model"
)

// Index finds the items whose embeddings are closest to an item's.
type Index interface {
	QueryNearest(ctx context.Context, itemID int64, k int) ([]model.ScoredItem, error)
}

// MemoryIndex is an exact cosine-similarity index held in memory.
type MemoryIndex struct {
	mu   sync.RWMutex
	dim  int
	vecs map[int64][]float64
	norm map[int64]float64
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index. The first embedding fixes the dimension.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		vecs: make(map[int64][]float64),
		norm: make(map[int64]float64),
	}
}

// Add stores or replaces the embedding of id.
func (m *MemoryIndex) Add(id int64, vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding for item %d", ErrDimensionMismatch, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dim == 0 {
		m.dim = len(vec)
	}
	if len(vec) != m.dim {
		return fmt.Errorf("%w: item %d has %d, want %d", ErrDimensionMismatch, id, len(vec), m.dim)
	}
	m.vecs[id] = slices.Clone(vec)
	m.norm[id] = floats.Norm(vec, 2)
	return nil
}

// Len returns the number of indexed items.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vecs)
}

// Missing returns the ids that have no embedding, in input order.
func (m *MemoryIndex) Missing(ids []int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []int64
	for _, id := range ids {
		if _, ok := m.vecs[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// QueryNearest returns up to k items most similar to itemID, excluding
// itemID itself. Similarity is cosine clamped to [0, 1]. An unindexed
// item yields an empty result.
func (m *MemoryIndex) QueryNearest(ctx context.Context, itemID int64, k int) ([]model.ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.vecs[itemID]
	if !ok || k <= 0 {
		return nil, nil
	}
	qn := m.norm[itemID]

	out := make([]model.ScoredItem, 0, len(m.vecs))
	for id, v := range m.vecs {
		if id == itemID {
			continue
		}
		out = append(out, model.ScoredItem{ItemID: id, Score: cosine(q, v, qn, m.norm[id])})
	}
	slices.SortFunc(out, func(a, b model.ScoredItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return min(max(floats.Dot(a, b)/(na*nb), 0), 1)
}

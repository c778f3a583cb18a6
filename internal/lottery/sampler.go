// Package lottery draws random subsets of the food catalog and aggregates
// draw history into per-food statistics. Everything here is a pure function
// of its arguments; callers own the catalog and history.
package lottery

import (
	"errors"
	"math/rand/v2"

	"github.com/dukerupert/foodlottery/internal/model"
)

// MaxDrawCount is the upper bound the draw form and API accept.
const MaxDrawCount = 10

var ErrInvalidCount = errors.New("draw count must be positive")

// Draw returns count distinct items chosen uniformly from catalog. If count
// is at least the catalog size the whole catalog is returned in catalog
// order. The catalog slice is never modified.
func Draw(rng *rand.Rand, catalog []model.FoodItem, count int) ([]model.FoodItem, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if len(catalog) == 0 {
		return []model.FoodItem{}, nil
	}
	if count >= len(catalog) {
		out := make([]model.FoodItem, len(catalog))
		copy(out, catalog)
		return out, nil
	}

	// Partial Fisher-Yates over an index array: the first i slots hold the
	// picks so far, the rest are still available.
	idx := make([]int, len(catalog))
	for i := range idx {
		idx[i] = i
	}

	selected := make([]model.FoodItem, 0, count)
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		selected = append(selected, catalog[idx[i]])
	}
	return selected, nil
}

// NewRand returns a generator seeded from the runtime's random source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededRand returns a deterministic generator for reproducible draws.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

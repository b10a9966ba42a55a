package gacha

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

var ErrInvalidPool = errors.New("invalid weighted pool")

// Source yields uniform floats in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a seeded source. A zero seed uses the current time.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

type WeightedEntry[V any] struct {
	Value  V
	Weight float64
}

// ValidatePool checks that pool is drawable and returns its total weight.
func ValidatePool[V any](pool []WeightedEntry[V]) (float64, error) {
	if len(pool) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPool)
	}
	total := 0.0
	for i, e := range pool {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return 0, fmt.Errorf("%w: entry %d weight %v", ErrInvalidPool, i, e.Weight)
		}
		total += e.Weight
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("%w: total weight %v", ErrInvalidPool, total)
	}
	return total, nil
}

// SelectWeighted draws r uniformly from [0,total) and returns the first entry
// whose cumulative weight exceeds r. Zero-weight entries are never selected.
func SelectWeighted[V any](src Source, pool []WeightedEntry[V]) (V, error) {
	var zero V
	total, err := ValidatePool(pool)
	if err != nil {
		return zero, err
	}

	r := src.Float64() * total
	upto := 0.0
	last := -1
	for i, e := range pool {
		if e.Weight == 0 {
			continue
		}
		upto += e.Weight
		last = i
		if upto > r {
			return e.Value, nil
		}
	}
	// Float rounding can leave r == total; the last drawable entry owns that edge.
	return pool[last].Value, nil
}

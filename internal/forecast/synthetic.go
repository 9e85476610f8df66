package forecast

import (
	"hash/fnv"
	"math/rand"
)

// syntheticSeries builds the deterministic fallback forecast used before
// any training has occurred: a base demand level, a linear upward trend
// and bounded gaussian noise, clamped to non-negative values.
//
// The RNG is seeded from the configured seed combined with the ingredient
// id, so repeated calls for the same ingredient are identical while
// different ingredients still differ.
func syntheticSeries(seed int64, ingredientID string, horizon int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(ingredientID))
	rng := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))

	base := 10 + 90*rng.Float64()

	span := float64(horizon - 1)
	if span < 1 {
		span = 1
	}

	out := make([]float64, horizon)
	for i := range out {
		trend := 5 * float64(i) / span
		v := base + trend + rng.NormFloat64()*2
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

package entropy

import "math/rand"

// SelectWeighted picks one item with probability proportional to its weight.
// Non-positive weights never win. Returns false when nothing can be picked.
// Exactly one value is drawn from r whenever the total weight is positive.
func SelectWeighted[T any](items []T, weights []float64, r *rand.Rand) (T, bool) {
	var zero T
	n := len(items)
	if len(weights) < n {
		n = len(weights)
	}

	total := 0.0
	for i := 0; i < n; i++ {
		if weights[i] > 0 {
			total += weights[i]
		}
	}
	if total <= 0 {
		return zero, false
	}

	pick := r.Float64() * total
	last := -1
	for i := 0; i < n; i++ {
		if weights[i] <= 0 {
			continue
		}
		last = i
		if pick < weights[i] {
			return items[i], true
		}
		pick -= weights[i]
	}

	// Floating point leftovers land on the last positive entry.
	return items[last], true
}

// SelectWeightedIndex is SelectWeighted over indices.
func SelectWeightedIndex(weights []float64, r *rand.Rand) (int, bool) {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	return SelectWeighted(idx, weights, r)
}

// Shuffle permutes items in place (Fisher-Yates) using r.
func Shuffle[T any](items []T, r *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

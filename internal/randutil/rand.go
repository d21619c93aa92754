// Package randutil centralises the seeded RNG used by sessions, rounds and bots.
package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG seeds are derived from the same value so that a single --seed flag
// reproduces a whole session: target order, opening hints and hint picks.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Sample returns k distinct elements of items chosen uniformly at random
// without replacement, in random order. The input slice is not modified.
// It panics if k is negative or larger than len(items).
func Sample[T any](rng *rand.Rand, items []T, k int) []T {
	if k < 0 || k > len(items) {
		panic("randutil: sample size out of range")
	}
	pool := make([]T, len(items))
	copy(pool, items)
	// Partial Fisher-Yates: only the first k positions need settling.
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Pick returns one element of items chosen uniformly at random.
// ok is false when items is empty.
func Pick[T any](rng *rand.Rand, items []T) (item T, ok bool) {
	if len(items) == 0 {
		return item, false
	}
	return items[rng.IntN(len(items))], true
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

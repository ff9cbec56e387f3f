package mutator

import (
	"math/rand"
)

// RNG is the seeded pseudo-random source used by every mutation operator.
// It is not safe for concurrent use; each agent owns its own instance.
type RNG struct {
	seed int64
	rng  *rand.Rand
}

// NewRNG creates a generator seeded with seed.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the generator was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Fork derives an independent generator from the next draw of r.
func (r *RNG) Fork() *RNG {
	return NewRNG(r.rng.Int63())
}

// UnsignedInt64 draws uniformly in [min, max]. max < min returns min.
func (r *RNG) UnsignedInt64(min, max uint64) uint64 {
	if max <= min {
		return min
	}
	span := max - min
	if span == ^uint64(0) {
		return r.rng.Uint64()
	}
	return min + r.rng.Uint64()%(span+1)
}

// Int draws uniformly in [min, max]. max < min returns min.
func (r *RNG) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.rng.Intn(max-min+1)
}

// Double draws uniformly in [min, max).
func (r *RNG) Double(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// Bool returns true with probability p.
func (r *RNG) Bool(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.rng.Float64() < p
}

// Shuffle permutes n elements through swap.
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	r.rng.Shuffle(n, swap)
}

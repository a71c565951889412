package random

import (
	"lukechampine.com/frand"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// FastRandom implements Random using a ChaCha-based CSPRNG
type FastRandom struct{}

// New creates a new FastRandom
func New() *FastRandom {
	return &FastRandom{}
}

// Intn returns a random int in [0, n), or 0 when n <= 0
func (r *FastRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return frand.Intn(n)
}

// Seeded implements Random with a deterministic stream, for reproducible games
type Seeded struct {
	rng *frand.RNG
}

// NewSeeded creates a deterministic Random from a 32-byte-or-shorter seed
func NewSeeded(seed []byte) *Seeded {
	key := make([]byte, 32)
	copy(key, seed)
	return &Seeded{rng: frand.NewCustom(key, 1024, 12)}
}

// Intn returns a deterministic int in [0, n), or 0 when n <= 0
func (r *Seeded) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.rng.Intn(n)
}

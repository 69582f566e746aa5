// Package dice provides the randomness abstraction used by the battle core:
// passive proc chances, random target picks and AI hand draws.
package dice

import (
	"math/rand/v2"
	"sync"
)

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// seededSource implements Source with a PCG generator behind a mutex.
//
// Invariant: two sources built from the same seed produce the same sequence.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a deterministic Source for seed.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" otherwise.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Float64 returns a random float in [0, 1).
func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// FixedSource replays Values for Intn (modulo n) and Floats for Float64,
// cycling through each. It is intended for tests.
type FixedSource struct {
	mu     sync.Mutex
	Values []int
	Floats []float64
	i, j   int
}

// Intn returns the next fixed value modulo n.
func (f *FixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.i%len(f.Values)]
	f.i++
	if v < 0 {
		v = -v
	}
	return v % n
}

// Float64 returns the next fixed float, or 0 when none are configured.
func (f *FixedSource) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Floats) == 0 {
		return 0
	}
	v := f.Floats[f.j%len(f.Floats)]
	f.j++
	return v
}

// Package util provides utility functions for the PulseBot application.
//
// This file holds the injectable randomness source used by template and
// persona selection. Tests fix the seed to assert deterministic output.
package util

import (
	"math/rand/v2"
)

// Rand is the randomness strategy injected into components that make
// randomized choices. Satisfied by *rand.Rand from math/rand/v2.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns an independently seeded Rand. Each caller may hold its own
// source; no shared seed state needs synchronization.
func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededRand returns a deterministic Rand for tests.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Pick returns a uniformly random element of items, or the zero value for an
// empty slice.
func Pick[T any](r Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[r.IntN(len(items))]
}

// Chance returns true with the given probability in [0,1].
func Chance(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

package util

import (
	"testing"
)

func TestSeededRandIsDeterministic(t *testing.T) {
	a, b := NewSeededRand(42), NewSeededRand(42)
	for i := 0; i < 100; i++ {
		if a.IntN(1000) != b.IntN(1000) {
			t.Fatal("same seed must yield the same sequence")
		}
	}
}

func TestPick(t *testing.T) {
	r := NewSeededRand(1)
	items := []string{"alpha", "beta", "gamma"}
	for i := 0; i < 50; i++ {
		got := Pick(r, items)
		if got != "alpha" && got != "beta" && got != "gamma" {
			t.Fatalf("picked value %q not in input", got)
		}
	}
}

func TestPickEmptyReturnsZero(t *testing.T) {
	r := NewSeededRand(1)
	if got := Pick(r, []string(nil)); got != "" {
		t.Errorf("empty slice should yield zero value, got %q", got)
	}
}

func TestChanceBounds(t *testing.T) {
	r := NewSeededRand(1)
	for i := 0; i < 20; i++ {
		if Chance(r, 0) {
			t.Fatal("p=0 must never fire")
		}
		if !Chance(r, 1) {
			t.Fatal("p=1 must always fire")
		}
	}
}

func TestChanceRate(t *testing.T) {
	r := NewSeededRand(99)
	hits := 0
	for i := 0; i < 1000; i++ {
		if Chance(r, 0.25) {
			hits++
		}
	}
	// Generous band around the expected 250.
	if hits < 180 || hits > 320 {
		t.Errorf("p=0.25 fired %d/1000 times, outside plausible range", hits)
	}
}


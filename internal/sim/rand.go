package sim

import (
	"math/rand"
	"time"
)

// RandomSource is the only source of randomness in the simulation.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
	Uint64() uint64
}

// NewRand returns a deterministic source for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// RunSeed derives the seed of run index from the experiment base seed.
func RunSeed(base int64, index int) int64 {
	return base + int64(index)
}

func timeSeed() int64 {
	return time.Now().UnixNano()
}

// draw reports whether an event of probability p happens. The extremes never
// consume a draw.
func draw(p float64, rng RandomSource) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

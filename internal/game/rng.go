package game

import "fmt"

// Rng is a seeded xorshift32 generator.
//
// The generator state advances with integer arithmetic only, so two Rngs
// built from the same seed yield the same sequence on every platform.
// Not safe for concurrent use; each Engine owns its own instance.
type Rng struct {
	state uint32
}

// NewRng creates a generator. Seed 0 is coerced to 1 since xorshift never
// leaves the all-zero state.
func NewRng(seed uint32) *Rng {
	if seed == 0 {
		seed = 1
	}
	return &Rng{state: seed}
}

// NextU advances the generator one step and returns the new state.
func (r *Rng) NextU() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Next01 returns a float in [0, 1) built from the top 24 bits of NextU.
func (r *Rng) Next01() float32 {
	return float32(r.NextU()>>8) / 16777216.0
}

// Range returns an int in [minInclusive, maxExclusive).
// Panics if maxExclusive <= minInclusive.
func (r *Rng) Range(minInclusive, maxExclusive int) int {
	if maxExclusive <= minInclusive {
		panic(fmt.Sprintf("game: Rng.Range requires max > min, got [%d, %d)", minInclusive, maxExclusive))
	}
	span := uint32(maxExclusive - minInclusive)
	return minInclusive + int(r.NextU()%span)
}

// RangeFloat returns minInclusive + Next01()*(maxInclusive-minInclusive).
func (r *Rng) RangeFloat(minInclusive, maxInclusive float32) float32 {
	return minInclusive + r.Next01()*(maxInclusive-minInclusive)
}

// State returns the current generator state.
func (r *Rng) State() uint32 {
	return r.state
}

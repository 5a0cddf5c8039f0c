// Package rng provides deterministic, splittable random streams for
// data-parallel sampling. A master stream deterministically derives
// independent substreams so that workers never share or reseed generator
// state.
package rng

import (
	"math/rand/v2"
)

// Stream is a deterministic pseudo-random stream backed by a PCG generator.
// A Stream remembers the seed material it was constructed from so that
// Split can derive child streams without consuming draws from the parent.
type Stream struct {
	hi, lo uint64
	r      *rand.Rand
}

// New creates a master stream from a single seed. The two PCG state words
// are expanded from the seed with SplitMix64 so that nearby seeds still
// produce well-separated states.
func New(seed uint64) *Stream {
	return fromState(splitmix(seed), splitmix(seed^0xda3e39cb94b95bdb))
}

func fromState(hi, lo uint64) *Stream {
	return &Stream{hi: hi, lo: lo, r: rand.New(rand.NewPCG(hi, lo))}
}

// Split derives substream i of n from the stream's construction seed
// material. Children of the same parent with distinct (i, n) pairs are
// statistically independent, and splitting does not advance the parent:
// the result depends only on the parent's seed material, never on how many
// draws it has produced.
//
// The derivation mixes (i, n) into each state word through SplitMix64:
//
//	child.hi = splitmix(parent.hi ^ splitmix(n<<32 | i))
//	child.lo = splitmix(parent.lo ^ splitmix(i<<32 | n))
func (s *Stream) Split(i, n uint64) *Stream {
	return fromState(
		splitmix(s.hi^splitmix(n<<32|i)),
		splitmix(s.lo^splitmix(i<<32|n)),
	)
}

// Float64 returns a draw in [0, 1).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// Uint64 returns a full-width draw.
func (s *Stream) Uint64() uint64 { return s.r.Uint64() }

// Int32N returns a draw in [0, n).
func (s *Stream) Int32N(n int32) int32 { return s.r.Int32N(n) }

// splitmix is the SplitMix64 finalizer; it drives all seed derivation.
func splitmix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Package entropy provides the explicit, seedable random sources threaded
// through agent spawning and every transmission step.
// A run owns exactly one Source; sources are never shared between runs.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// Source is the subset of *math/rand.Rand the engine draws from.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Rand is a seeded Source that remembers its seed for reporting.
type Rand struct {
	*mrand.Rand
	seed int64
}

// New returns a Source seeded with seed. A zero seed draws a fresh one
// from crypto/rand.
func New(seed int64) *Rand {
	if seed == 0 {
		seed = NewSeed()
		slog.Debug("drew random seed", "seed", seed)
	}
	return &Rand{Rand: mrand.New(mrand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the source was created with.
func (r *Rand) Seed() int64 {
	return r.seed
}

// NewSeed returns a non-zero seed from crypto/rand.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to a fixed odd constant.
		return 0x5DEECE66D
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// DeriveSeed mixes a batch seed with a run index (SplitMix64) so that
// parallel runs get independent, reproducible streams.
func DeriveSeed(base int64, index int) int64 {
	z := uint64(base) + uint64(index+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	seed := int64(z >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Package rand provides the seeded random sources threaded through a
// simulation run. Nothing in the simulation reads a process-wide generator.
package rand

import (
	"github.com/MichaelTJones/pcg"
)

// streamBase selects the PCG sequence; trials derive their own stream from it
const streamBase = 0xda3e39cb94b95bdb

// Source is the only randomness the simulation consumes
type Source interface {
	Float64() float64
}

// PCG is a Source backed by a 32-bit permuted congruential generator
type PCG struct {
	r *pcg.PCG32
}

// New returns a PCG seeded with seed on the default stream
func New(seed int64) *PCG {
	return NewStream(seed, 0)
}

// NewStream returns a PCG seeded with seed on an independent stream.
// Parallel trials use one stream each so they never share state.
func NewStream(seed int64, stream uint64) *PCG {
	r := pcg.NewPCG32()
	r.Seed(uint64(seed), streamBase+stream)
	return &PCG{r: r}
}

// Float64 returns a uniform value in [0, 1) with 53 bits of precision
func (p *PCG) Float64() float64 {
	hi := uint64(p.r.Random()) >> 5
	lo := uint64(p.r.Random()) >> 6
	return float64(hi<<26|lo) / (1 << 53)
}

// Intn returns a uniform value in [0, n)
func (p *PCG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(p.r.Bounded(uint32(n)))
}

// Uniform draws from [lo, hi]
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Intn draws from [0, n). Sources with their own Intn are used directly;
// others are scaled from Float64.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	if b, ok := src.(interface{ Intn(int) int }); ok {
		return b.Intn(n)
	}
	v := int(src.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Bernoulli reports true with probability p
func Bernoulli(src Source, p float64) bool {
	return src.Float64() < p
}

// Fixed replays a fixed sequence of values, wrapping around at the end.
// Tests use it to pin down draws such as initial speeds.
type Fixed struct {
	Values []float64
	next   int
}

func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

package models

import (
	"fmt"
	"math"
	"sort"
)

// Band is one row of the speed table: distances in (LowerNM, UpperNM]
// may fly between MinKt and MaxKt
type Band struct {
	LowerNM float64 `mapstructure:"lower_nm" msgpack:"lower"`
	UpperNM float64 `mapstructure:"upper_nm" msgpack:"upper"` // math.Inf(1) for the open outer band
	MinKt   float64 `mapstructure:"min_kt" msgpack:"min"`
	MaxKt   float64 `mapstructure:"max_kt" msgpack:"max"`
}

// Contains reports whether distanceNM falls inside the band
func (b Band) Contains(distanceNM float64) bool {
	return b.LowerNM < distanceNM && distanceNM <= b.UpperNM
}

// Envelope is a validated, contiguous speed table
type Envelope struct {
	bands     []Band // ascending by LowerNM
	innermost Band
}

// NewEnvelope validates bands and builds an Envelope.
// Bands may be given in any order but must tile a contiguous distance range.
func NewEnvelope(bands []Band) (*Envelope, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("speed table is empty")
	}

	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LowerNM < sorted[j].LowerNM })

	for i, b := range sorted {
		if b.LowerNM < 0 {
			return nil, fmt.Errorf("band %d: lower bound %.1f is negative", i, b.LowerNM)
		}
		if !(b.LowerNM < b.UpperNM) {
			return nil, fmt.Errorf("band %d: lower bound %.1f must be below upper bound %.1f", i, b.LowerNM, b.UpperNM)
		}
		if b.MinKt <= 0 || b.MinKt > b.MaxKt {
			return nil, fmt.Errorf("band %d: speed range [%.0f, %.0f] is invalid", i, b.MinKt, b.MaxKt)
		}
		if i > 0 && sorted[i-1].UpperNM != b.LowerNM {
			return nil, fmt.Errorf("band %d: gap or overlap between %.1f and %.1f nm", i, sorted[i-1].UpperNM, b.LowerNM)
		}
	}

	return &Envelope{bands: sorted, innermost: sorted[0]}, nil
}

// MustEnvelope is NewEnvelope for tables known to be valid
func MustEnvelope(bands []Band) *Envelope {
	env, err := NewEnvelope(bands)
	if err != nil {
		panic(err)
	}
	return env
}

// Bands returns a copy of the table, innermost first
func (e *Envelope) Bands() []Band {
	out := make([]Band, len(e.bands))
	copy(out, e.bands)
	return out
}

// Band returns the band containing distanceNM, or the innermost band when
// no band contains it (at the threshold)
func (e *Envelope) Band(distanceNM float64) Band {
	for _, b := range e.bands {
		if b.Contains(distanceNM) {
			return b
		}
	}
	return e.innermost
}

// Limits returns the speed range permitted at distanceNM
func (e *Envelope) Limits(distanceNM float64) (minKt, maxKt float64) {
	b := e.Band(distanceNM)
	return b.MinKt, b.MaxKt
}

// Permits reports whether speedKt is legal at distanceNM
func (e *Envelope) Permits(distanceNM, speedKt float64) bool {
	lo, hi := e.Limits(distanceNM)
	return lo <= speedKt && speedKt <= hi
}

// Check returns ErrNoBand when distanceNM lies beyond the outermost band
func (e *Envelope) Check(distanceNM float64) error {
	outer := e.bands[len(e.bands)-1]
	if distanceNM < 0 || distanceNM > outer.UpperNM {
		return fmt.Errorf("%w: %.1f nm", ErrNoBand, distanceNM)
	}
	return nil
}

// FreeFlowMinutes is the unconstrained time from distanceNM to touchdown,
// flying every band at its maximum speed
func (e *Envelope) FreeFlowMinutes(distanceNM float64) float64 {
	total := 0.0
	// below the innermost band the innermost limits apply
	if below := math.Min(distanceNM, e.innermost.LowerNM); below > 0 {
		total += below * 60 / e.innermost.MaxKt
	}
	for _, b := range e.bands {
		if distanceNM <= b.LowerNM {
			break
		}
		leg := math.Min(distanceNM, b.UpperNM) - b.LowerNM
		total += leg * 60 / b.MaxKt
	}
	return total
}

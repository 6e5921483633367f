package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		bands   []Band
		wantErr bool
	}{
		{name: "defaults", bands: DefaultBands()},
		{name: "single open band", bands: []Band{{LowerNM: 100, UpperNM: math.Inf(1), MinKt: 300, MaxKt: 500}}},
		{name: "empty", bands: nil, wantErr: true},
		{name: "negative lower", bands: []Band{{LowerNM: -1, UpperNM: 5, MinKt: 100, MaxKt: 150}}, wantErr: true},
		{name: "inverted range", bands: []Band{{LowerNM: 5, UpperNM: 5, MinKt: 100, MaxKt: 150}}, wantErr: true},
		{name: "min above max", bands: []Band{{LowerNM: 0, UpperNM: 5, MinKt: 200, MaxKt: 150}}, wantErr: true},
		{name: "zero speed", bands: []Band{{LowerNM: 0, UpperNM: 5, MinKt: 0, MaxKt: 150}}, wantErr: true},
		{
			name: "gap between bands",
			bands: []Band{
				{LowerNM: 0, UpperNM: 5, MinKt: 120, MaxKt: 150},
				{LowerNM: 10, UpperNM: 15, MinKt: 150, MaxKt: 200},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewEnvelope(tt.bands)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, env)
				return
			}
			require.NoError(t, err)
			assert.Len(t, env.Bands(), len(tt.bands))
		})
	}
}

func TestEnvelopeLimits(t *testing.T) {
	env := MustEnvelope(DefaultBands())

	tests := []struct {
		distance float64
		min, max float64
	}{
		{distance: 100, min: 250, max: 300},
		{distance: 100.5, min: 300, max: 500},
		{distance: 50, min: 200, max: 250},
		{distance: 49.9, min: 200, max: 250},
		{distance: 15, min: 150, max: 200},
		{distance: 5, min: 120, max: 150},
		{distance: 0.1, min: 120, max: 150},
		// the threshold falls back to the innermost band
		{distance: 0, min: 120, max: 150},
	}

	for _, tt := range tests {
		lo, hi := env.Limits(tt.distance)
		assert.Equal(t, tt.min, lo, "min at %.1f nm", tt.distance)
		assert.Equal(t, tt.max, hi, "max at %.1f nm", tt.distance)
	}

	assert.True(t, env.Permits(100, 300))
	assert.False(t, env.Permits(100, 301))
	assert.False(t, env.Permits(3, 119))
}

func TestEnvelopeCheck(t *testing.T) {
	bounded := MustEnvelope(DefaultBands()[1:])

	assert.NoError(t, bounded.Check(100))
	assert.NoError(t, bounded.Check(0))
	assert.True(t, errors.Is(bounded.Check(100.1), ErrNoBand))
	assert.True(t, errors.Is(bounded.Check(-1), ErrNoBand))

	open := MustEnvelope(DefaultBands())
	assert.NoError(t, open.Check(5000))
}

func TestFreeFlowMinutes(t *testing.T) {
	env := MustEnvelope(DefaultBands())

	// 50 nm at 300 kt, 35 at 250, 10 at 200, 5 at 150
	assert.InDelta(t, 10+8.4+3+2, env.FreeFlowMinutes(100), 1e-9)
	assert.InDelta(t, 2.0, env.FreeFlowMinutes(5), 1e-9)
	assert.Zero(t, env.FreeFlowMinutes(0))

	single := MustEnvelope([]Band{{LowerNM: 100, UpperNM: math.Inf(1), MinKt: 300, MaxKt: 500}})
	assert.InDelta(t, 12.0, single.FreeFlowMinutes(100), 1e-9)
	assert.InDelta(t, 13.2, single.FreeFlowMinutes(110), 1e-9)
}

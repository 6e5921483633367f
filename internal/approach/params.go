// Package approach implements the per-tick traffic management of the
// approach corridor: speed control for separation, suspension and
// reintegration of aircraft that lose their slot, diversion policies and the
// disruptions layered on top of the base loop.
package approach

import (
	"fmt"

	"approach_sim/internal/models"
)

// Params are the separation thresholds shared by the controller and the
// reintegration search. Times are minutes, speeds knots, distances nm.
type Params struct {
	MinSeparationMin float64
	BufferMin        float64
	RejoinGapMin     float64
	SpeedStepKt      float64
	RejoinSpeedKt    float64
	CorridorOuterNM  float64
}

// DefaultParams returns the standard corridor thresholds
func DefaultParams() Params {
	return Params{
		MinSeparationMin: models.DefaultMinSeparationMin,
		BufferMin:        models.DefaultBufferMin,
		RejoinGapMin:     models.DefaultRejoinGapMin,
		SpeedStepKt:      models.DefaultSpeedStepKt,
		RejoinSpeedKt:    models.DefaultRejoinSpeedKt,
		CorridorOuterNM:  models.DefaultCorridorOuterNM,
	}
}

// Validate reports the first inconsistent threshold
func (p Params) Validate() error {
	if p.MinSeparationMin <= 0 {
		return fmt.Errorf("min separation must be greater than 0")
	}
	if p.BufferMin < p.MinSeparationMin {
		return fmt.Errorf("buffer (%.1f min) must not be below the min separation (%.1f min)", p.BufferMin, p.MinSeparationMin)
	}
	if p.RejoinGapMin <= 0 {
		return fmt.Errorf("rejoin gap must be greater than 0")
	}
	if p.SpeedStepKt <= 0 {
		return fmt.Errorf("speed step must be greater than 0")
	}
	if p.RejoinSpeedKt <= 0 {
		return fmt.Errorf("rejoin speed must be greater than 0")
	}
	if p.CorridorOuterNM <= 0 {
		return fmt.Errorf("corridor outer bound must be greater than 0")
	}
	return nil
}

// Holding describes the racetrack flown by fuel-aware aircraft
type Holding struct {
	InnerNM float64 // re-entry fix
	OuterNM float64
	SpeedKt float64
}

// DefaultHolding returns the standard holding pattern
func DefaultHolding() Holding {
	return Holding{
		InnerNM: models.DefaultHoldInnerNM,
		OuterNM: models.DefaultHoldOuterNM,
		SpeedKt: models.DefaultHoldSpeedKt,
	}
}

// Validate checks the fixes and speed
func (h Holding) Validate() error {
	if h.InnerNM <= 0 || h.InnerNM >= h.OuterNM {
		return fmt.Errorf("holding fixes [%.1f, %.1f] nm are invalid", h.InnerNM, h.OuterNM)
	}
	if h.SpeedKt <= 0 {
		return fmt.Errorf("holding speed must be greater than 0")
	}
	return nil
}

// separation is the gap in minutes between the projected landings of prev
// and curr at tick now
func separation(now int, prev, curr *models.Aircraft) float64 {
	return curr.ProjectedLandingTick(now) - prev.ProjectedLandingTick(now)
}

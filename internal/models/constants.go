package models

import (
	"math"
)

// Corridor and separation defaults, in nm, knots and minutes
const (
	// DefaultInitialDistanceNM is where every arrival enters the corridor
	DefaultInitialDistanceNM = 100.0
	// DefaultCorridorOuterNM is the outer bound; rejoining past it is a diversion
	DefaultCorridorOuterNM = 100.0

	DefaultMinSeparationMin = 4.0  // raw minimum between projected landings
	DefaultBufferMin        = 5.0  // required after a speed reduction
	DefaultRejoinGapMin     = 10.0 // gap needed to splice a suspended aircraft back
	DefaultSpeedStepKt      = 20.0 // decrement below the predecessor's speed
	DefaultRejoinSpeedKt    = 200.0

	// Landing interruption (windy day)
	DefaultInterruptionProbability = 0.1
	DefaultInterruptionReentryNM   = 20.0

	// Runway closure (storm)
	DefaultClosureStartTick     = 540
	DefaultClosureDurationTicks = 30
	DefaultClosureThresholdNM   = 10.0
	DefaultWaitCeilingTicks     = 60
	DefaultCloseInWaitTicks     = 30
	DefaultCloseInNM            = 10.0

	// Fuel-aware holding (roughly a 737)
	DefaultFuelCapacityKg    = 20800.0
	DefaultFuelMinFraction   = 0.5
	DefaultFuelMaxFraction   = 0.9
	DefaultFuelBurnKgPerHour = 2700.0
	DefaultAlternateNM       = 120.0
	DefaultAlternateSpeedKt  = 450.0
	DefaultHoldInnerNM       = 10.0
	DefaultHoldOuterNM       = 15.0
	DefaultHoldSpeedKt       = 230.0

	// DefaultDayStartHour is the local hour of tick 0
	DefaultDayStartHour = 6
)

// DefaultBands is the approach speed table for the corridor
func DefaultBands() []Band {
	return []Band{
		{LowerNM: 100, UpperNM: math.Inf(1), MinKt: 300, MaxKt: 500},
		{LowerNM: 50, UpperNM: 100, MinKt: 250, MaxKt: 300},
		{LowerNM: 15, UpperNM: 50, MinKt: 200, MaxKt: 250},
		{LowerNM: 5, UpperNM: 15, MinKt: 150, MaxKt: 200},
		{LowerNM: 0, UpperNM: 5, MinKt: 120, MaxKt: 150},
	}
}

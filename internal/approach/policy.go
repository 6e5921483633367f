package approach

import (
	"fmt"

	"approach_sim/internal/kinematics"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
)

// Diverts decides whether an aircraft must give up the approach and fly to
// the alternate. Terminal aircraft are never diverted.
type Diverts func(a *models.Aircraft) bool

// Never is the policy of a scenario without that trigger
func Never(*models.Aircraft) bool { return false }

// DistanceBound diverts a rejoining aircraft once it is beyond outerNM
func DistanceBound(outerNM float64) Diverts {
	return func(a *models.Aircraft) bool {
		return !a.Status.Terminal() && a.DistanceNM > outerNM
	}
}

// WaitBound diverts an aircraft held by a closure after ceilingTicks of
// waiting, or after closeInTicks when it is already inside closeInNM
func WaitBound(ceilingTicks, closeInTicks int, closeInNM float64) Diverts {
	return func(a *models.Aircraft) bool {
		if a.Status.Terminal() {
			return false
		}
		if a.WaitTicks > ceilingTicks {
			return true
		}
		return a.DistanceNM < closeInNM && a.WaitTicks > closeInTicks
	}
}

// FuelPlan is the fuel model of fuel-aware aircraft
type FuelPlan struct {
	CapacityKg    float64
	MinFraction   float64
	MaxFraction   float64
	BurnKgPerHour float64
	AlternateNM   float64
	AlternateKt   float64
}

// DefaultFuelPlan returns the standard narrow-body fuel model
func DefaultFuelPlan() FuelPlan {
	return FuelPlan{
		CapacityKg:    models.DefaultFuelCapacityKg,
		MinFraction:   models.DefaultFuelMinFraction,
		MaxFraction:   models.DefaultFuelMaxFraction,
		BurnKgPerHour: models.DefaultFuelBurnKgPerHour,
		AlternateNM:   models.DefaultAlternateNM,
		AlternateKt:   models.DefaultAlternateSpeedKt,
	}
}

// Validate checks the fuel model
func (f FuelPlan) Validate() error {
	if f.CapacityKg <= 0 || f.BurnKgPerHour <= 0 {
		return fmt.Errorf("fuel capacity and burn must be greater than 0")
	}
	if f.MinFraction <= 0 || f.MinFraction > f.MaxFraction || f.MaxFraction > 1 {
		return fmt.Errorf("initial fuel fractions [%.2f, %.2f] are invalid", f.MinFraction, f.MaxFraction)
	}
	if f.AlternateNM <= 0 || f.AlternateKt <= 0 {
		return fmt.Errorf("alternate distance and speed must be greater than 0")
	}
	return nil
}

// Fill draws the fuel on board at arrival
func (f FuelPlan) Fill(src rand.Source) *models.Fuel {
	return &models.Fuel{
		RemainingKg:  rand.Uniform(src, f.MinFraction, f.MaxFraction) * f.CapacityKg,
		BurnKgPerMin: f.BurnKgPerMin(),
	}
}

// BurnKgPerMin is the burn per tick
func (f FuelPlan) BurnKgPerMin() float64 {
	return f.BurnKgPerHour / kinematics.MinutesPerHour
}

// AlternateCostKg is the fuel needed to reach the alternate
func (f FuelPlan) AlternateCostKg() float64 {
	return kinematics.ETAMinutes(f.AlternateNM, f.AlternateKt) * f.BurnKgPerMin()
}

// FuelBound diverts a holding aircraft when one more tick in the hold would
// leave less fuel than the flight to the alternate needs
func FuelBound(plan FuelPlan) Diverts {
	reserve := plan.AlternateCostKg()
	return func(a *models.Aircraft) bool {
		if a.Status.Terminal() || a.Fuel == nil {
			return false
		}
		return a.Fuel.RemainingKg-a.Fuel.BurnKgPerMin < reserve
	}
}

package sim

import (
	"fmt"

	"approach_sim/internal/approach"
	"approach_sim/internal/models"
)

// Diversion names the trigger that ends a suspension for the scenario
type Diversion string

const (
	DiversionDistance Diversion = "distance"
	DiversionWait     Diversion = "wait"
	DiversionFuel     Diversion = "fuel"
)

// ClosureConfig is a runway closure window
type ClosureConfig struct {
	Enabled          bool
	StartTick        int
	DurationTicks    int
	RandomStart      bool
	ThresholdNM      float64
	WaitCeilingTicks int
	CloseInWaitTicks int
	CloseInNM        float64
}

// Config is everything a run needs besides its random source and arrivals
type Config struct {
	ArrivalProbability float64
	TotalTicks         int
	InitialDistanceNM  float64
	Bands              []models.Band

	Approach     approach.Params
	Variant      models.Variant
	Diversion    Diversion
	Interruption approach.Interruption
	Closure      ClosureConfig
	Fuel         approach.FuelPlan
	Holding      approach.Holding
}

// DefaultConfig is the base scenario over an 18 hour day
func DefaultConfig() Config {
	return Config{
		ArrivalProbability: 0.1,
		TotalTicks:         1080,
		InitialDistanceNM:  models.DefaultInitialDistanceNM,
		Bands:              models.DefaultBands(),
		Approach:           approach.DefaultParams(),
		Variant:            models.VariantBase,
		Diversion:          DiversionDistance,
		Interruption: approach.Interruption{
			Probability: models.DefaultInterruptionProbability,
			ReentryNM:   models.DefaultInterruptionReentryNM,
		},
		Closure: ClosureConfig{
			StartTick:        models.DefaultClosureStartTick,
			DurationTicks:    models.DefaultClosureDurationTicks,
			ThresholdNM:      models.DefaultClosureThresholdNM,
			WaitCeilingTicks: models.DefaultWaitCeilingTicks,
			CloseInWaitTicks: models.DefaultCloseInWaitTicks,
			CloseInNM:        models.DefaultCloseInNM,
		},
		Fuel:    approach.DefaultFuelPlan(),
		Holding: approach.DefaultHolding(),
	}
}

// Validate rejects configurations that cannot run. It is called by New
// before any tick executes.
func (c Config) Validate() error {
	if c.ArrivalProbability < 0 || c.ArrivalProbability > 1 {
		return fmt.Errorf("arrival probability %.3f must be in [0, 1]", c.ArrivalProbability)
	}
	if c.TotalTicks <= 0 {
		return fmt.Errorf("total ticks must be greater than 0")
	}
	if err := c.Approach.Validate(); err != nil {
		return err
	}

	env, err := models.NewEnvelope(c.Bands)
	if err != nil {
		return err
	}
	if c.InitialDistanceNM <= 0 {
		return fmt.Errorf("initial distance must be greater than 0")
	}
	if err := env.Check(c.InitialDistanceNM); err != nil {
		return fmt.Errorf("initial distance: %w", err)
	}

	switch c.Diversion {
	case DiversionDistance:
	case DiversionWait:
		if !c.Closure.Enabled {
			return fmt.Errorf("wait diversion requires a runway closure")
		}
	case DiversionFuel:
		if c.Variant != models.VariantFuelAware {
			return fmt.Errorf("fuel diversion requires the fuel_aware variant")
		}
	default:
		return fmt.Errorf("unknown diversion: %s (must be distance, wait or fuel)", c.Diversion)
	}

	switch c.Variant {
	case models.VariantInterruptible:
		if c.Interruption.Probability < 0 || c.Interruption.Probability > 1 {
			return fmt.Errorf("interruption probability %.3f must be in [0, 1]", c.Interruption.Probability)
		}
		if c.Interruption.ReentryNM <= 0 {
			return fmt.Errorf("interruption re-entry distance must be greater than 0")
		}
		if err := env.Check(c.Interruption.ReentryNM); err != nil {
			return fmt.Errorf("interruption re-entry: %w", err)
		}
	case models.VariantFuelAware:
		if c.Diversion != DiversionFuel {
			return fmt.Errorf("the fuel_aware variant requires fuel diversion")
		}
		if err := c.Fuel.Validate(); err != nil {
			return err
		}
		if err := c.Holding.Validate(); err != nil {
			return err
		}
	}

	if c.Closure.Enabled {
		cl := c.Closure
		if cl.DurationTicks <= 0 || cl.DurationTicks > c.TotalTicks {
			return fmt.Errorf("closure duration must be in (0, %d]", c.TotalTicks)
		}
		if !cl.RandomStart && (cl.StartTick < 0 || cl.StartTick >= c.TotalTicks) {
			return fmt.Errorf("closure start %d is outside the run", cl.StartTick)
		}
		if cl.ThresholdNM <= 0 {
			return fmt.Errorf("closure threshold must be greater than 0")
		}
		if c.Diversion == DiversionWait && cl.WaitCeilingTicks <= 0 {
			return fmt.Errorf("wait ceiling must be greater than 0")
		}
	}

	return nil
}

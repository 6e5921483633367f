package approach

import (
	"fmt"
	"log/slog"

	"approach_sim/internal/models"
	"approach_sim/internal/rand"
)

// Interruption models landings aborted at the threshold (windy day). An
// interrupted aircraft is put back at ReentryNM and has to rejoin.
type Interruption struct {
	Probability float64
	ReentryNM   float64
}

// Clearance returns the landing decision for interruptible aircraft; other
// variants always land
func (i Interruption) Clearance(src rand.Source) models.LandingClearance {
	if i.Probability <= 0 {
		return nil
	}
	return func(a *models.Aircraft) bool {
		if a.Variant != models.VariantInterruptible {
			return true
		}
		return !rand.Bernoulli(src, i.Probability)
	}
}

// GoAround suspends an aircraft whose landing was interrupted and places it
// at the re-entry distance at tick
func (i Interruption) GoAround(tick int, a *models.Aircraft) error {
	if err := a.Suspend(tick, models.SuspendRejoin, i.ReentryNM); err != nil {
		return fmt.Errorf("failed to interrupt landing: %w", err)
	}
	if err := a.Reposition(tick, i.ReentryNM); err != nil {
		return fmt.Errorf("failed to interrupt landing: %w", err)
	}
	a.Interruptions++

	slog.Debug("Landing interrupted", "tick", tick, "id", a.ID, "interruptions", a.Interruptions)
	return nil
}

// ClosureMode is how traffic behaves while the runway is closed
type ClosureMode int

const (
	// ClosureStraight keeps aircraft flying inbound; crossing the threshold diverts
	ClosureStraight ClosureMode = iota
	// ClosureHold keeps aircraft in position until the wait policy diverts them
	ClosureHold
)

func (m ClosureMode) String() string {
	if m == ClosureHold {
		return "hold"
	}
	return "straight"
}

// Closure is a runway closure over [StartTick, StartTick+DurationTicks)
type Closure struct {
	StartTick     int
	DurationTicks int
	ThresholdNM   float64
	Mode          ClosureMode
	Wait          Diverts // hold mode only
}

// ClosureStats accumulates the closure's effect on the run
type ClosureStats struct {
	// Affected counts aircraft diverted at the threshold in straight mode
	// and aircraft-ticks spent waiting in hold mode
	Affected    int `msgpack:"affected"`
	WaitMinutes int `msgpack:"wait_minutes"`
	MaxQueue    int `msgpack:"max_queue"`
}

// RandomStart draws a start tick uniformly so the window fits in totalTicks
func RandomStart(src rand.Source, totalTicks, durationTicks int) int {
	span := totalTicks - durationTicks + 1
	if span <= 1 {
		return 0
	}
	return rand.Intn(src, span)
}

// EndTick is the first tick after the window
func (c *Closure) EndTick() int {
	return c.StartTick + c.DurationTicks
}

// Active reports whether the runway is closed at tick
func (c *Closure) Active(tick int) bool {
	return c != nil && c.StartTick <= tick && tick < c.EndTick()
}

// Step moves the queue through one closed tick, bypassing the controller.
// It returns the aircraft still in the queue and those diverted.
func (c *Closure) Step(now int, queue []*models.Aircraft, env *models.Envelope, stats *ClosureStats) (kept, diverted []*models.Aircraft, err error) {
	if len(queue) > stats.MaxQueue {
		stats.MaxQueue = len(queue)
	}

	kept = make([]*models.Aircraft, 0, len(queue))
	for _, a := range queue {
		if a.Status != models.StatusApproaching {
			continue
		}
		a.Conform(env)

		var divert bool
		switch c.Mode {
		case ClosureHold:
			a.Hold(now)
			stats.Affected++
			stats.WaitMinutes++
			divert = c.Wait != nil && c.Wait(a)
		default:
			// the runway is closed: reaching it is never a landing
			if _, err := a.Advance(now, 1, func(*models.Aircraft) bool { return false }); err != nil {
				return nil, nil, err
			}
			divert = a.DistanceNM <= c.ThresholdNM
			if divert {
				stats.Affected++
			}
		}

		if !divert {
			kept = append(kept, a)
			continue
		}
		if err := a.Divert(now); err != nil {
			return nil, nil, err
		}
		diverted = append(diverted, a)
		slog.Debug("Aircraft diverted by runway closure",
			"tick", now,
			"id", a.ID,
			"mode", c.Mode,
			"distance_nm", a.DistanceNM,
			"wait_min", a.WaitTicks,
		)
	}

	return kept, diverted, nil
}

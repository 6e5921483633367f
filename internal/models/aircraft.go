package models

import (
	"fmt"
	"math"

	"approach_sim/internal/kinematics"
	"approach_sim/internal/rand"
)

// Status is the flight state of an aircraft in the corridor
type Status int

const (
	StatusApproaching Status = iota
	StatusSuspended
	StatusLanded
	StatusDiverted
)

var statusNames = map[Status]string{
	StatusApproaching: "approaching",
	StatusSuspended:   "suspended",
	StatusLanded:      "landed",
	StatusDiverted:    "diverted",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusLanded || s == StatusDiverted
}

// Variant tags the scenario an aircraft was built for. Only FuelAware
// aircraft carry a Fuel record.
type Variant int

const (
	VariantBase Variant = iota
	VariantInterruptible
	VariantFuelAware
)

var variantNames = map[Variant]string{
	VariantBase:          "base",
	VariantInterruptible: "interruptible",
	VariantFuelAware:     "fuel_aware",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant maps a configuration name to a Variant
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return VariantBase, fmt.Errorf("unknown variant: %s (must be base, interruptible or fuel_aware)", name)
}

// SuspendMode is how a suspended aircraft flies while out of the queue
type SuspendMode int

const (
	SuspendNone    SuspendMode = iota
	SuspendRejoin              // outbound at the rejoin speed
	SuspendHolding             // racetrack between the holding fixes
)

// Sample is one point of an aircraft's position history
type Sample struct {
	Tick       int     `msgpack:"t"`
	DistanceNM float64 `msgpack:"d"`
}

// Fuel is carried by fuel-aware aircraft only
type Fuel struct {
	RemainingKg  float64 `msgpack:"remaining_kg"`
	BurnKgPerMin float64 `msgpack:"burn_kg_min"`
}

// Touchdown is the outcome of an inbound step
type Touchdown int

const (
	Airborne Touchdown = iota // still above the threshold
	Landed                    // touched down and cleared to land
	GoAround                  // reached the threshold but was not cleared
)

// LandingClearance decides, at the threshold, whether an aircraft may land.
// A nil clearance always lands.
type LandingClearance func(a *Aircraft) bool

// Aircraft is the mutable flight record of one arrival
type Aircraft struct {
	ID         int     `msgpack:"id"`
	Variant    Variant `msgpack:"variant"`
	AppearTick int     `msgpack:"appear_tick"`
	DistanceNM float64 `msgpack:"distance_nm"`
	SpeedKt    float64 `msgpack:"speed_kt"`
	Status     Status  `msgpack:"status"`

	// History is append-only and used for reporting only
	History []Sample `msgpack:"history"`

	// TerminalTick is meaningful once Status is landed or diverted
	TerminalTick int `msgpack:"terminal_tick"`

	Suspension           SuspendMode `msgpack:"suspension"`
	SuspendStartTick     int         `msgpack:"suspend_start_tick"`
	SuspendEntryDistance float64     `msgpack:"suspend_entry_nm"`
	HoldOutbound         bool        `msgpack:"hold_outbound"`
	Suspensions          int         `msgpack:"suspensions"`

	WaitTicks     int   `msgpack:"wait_ticks"`
	Interruptions int   `msgpack:"interruptions"`
	Fuel          *Fuel `msgpack:"fuel,omitempty"`
}

// NewAircraft creates an approaching aircraft at distanceNM whose initial
// speed is drawn uniformly from the band containing that distance
func NewAircraft(id int, variant Variant, appearTick int, distanceNM float64, env *Envelope, src rand.Source) *Aircraft {
	lo, hi := env.Limits(distanceNM)
	return &Aircraft{
		ID:         id,
		Variant:    variant,
		AppearTick: appearTick,
		DistanceNM: distanceNM,
		SpeedKt:    rand.Uniform(src, lo, hi),
		Status:     StatusApproaching,
		History:    []Sample{{Tick: appearTick, DistanceNM: distanceNM}},
	}
}

// LandedTick returns the touchdown tick if the aircraft has landed
func (a *Aircraft) LandedTick() (int, bool) {
	if a.Status != StatusLanded {
		return 0, false
	}
	return a.TerminalTick, true
}

// DivertedTick returns the diversion tick if the aircraft has diverted
func (a *Aircraft) DivertedTick() (int, bool) {
	if a.Status != StatusDiverted {
		return 0, false
	}
	return a.TerminalTick, true
}

// ProjectedLandingTick is now plus the ETA at the current speed, or the
// actual touchdown tick once landed
func (a *Aircraft) ProjectedLandingTick(now int) float64 {
	if tick, ok := a.LandedTick(); ok {
		return float64(tick)
	}
	return float64(now) + kinematics.ETAMinutes(a.DistanceNM, a.SpeedKt)
}

// SetSpeed commands speedKt, which must lie in the band at the current distance
func (a *Aircraft) SetSpeed(speedKt float64, env *Envelope) error {
	if a.Status.Terminal() {
		return fmt.Errorf("set speed on aircraft %d: %w", a.ID, ErrTerminal)
	}
	if a.Status == StatusApproaching && !env.Permits(a.DistanceNM, speedKt) {
		lo, hi := env.Limits(a.DistanceNM)
		return fmt.Errorf("aircraft %d at %.2f nm: %.1f kt not in [%.0f, %.0f]: %w",
			a.ID, a.DistanceNM, speedKt, lo, hi, ErrSpeedOutOfEnvelope)
	}
	a.SpeedKt = speedKt
	return nil
}

// Advance flies the aircraft inbound for dt minutes from tick now at its
// commanded speed. Reaching the threshold lands it when clear permits;
// this is the only place an aircraft lands.
func (a *Aircraft) Advance(now, dt int, clear LandingClearance) (Touchdown, error) {
	if a.Status != StatusApproaching {
		return Airborne, fmt.Errorf("advance aircraft %d while %s: %w", a.ID, a.Status, ErrBadTransition)
	}

	a.DistanceNM = math.Max(0, a.DistanceNM-kinematics.Distance(a.SpeedKt, float64(dt)))
	a.History = append(a.History, Sample{Tick: now + dt, DistanceNM: a.DistanceNM})
	a.burn(dt)

	if a.DistanceNM > 0 {
		return Airborne, nil
	}
	if clear != nil && !clear(a) {
		return GoAround, nil
	}

	a.Status = StatusLanded
	a.TerminalTick = now + dt
	return Landed, nil
}

// Outbound flies a suspended aircraft away from the runway at speedKt
func (a *Aircraft) Outbound(now, dt int, speedKt float64) error {
	if a.Status != StatusSuspended {
		return fmt.Errorf("outbound aircraft %d while %s: %w", a.ID, a.Status, ErrBadTransition)
	}
	a.DistanceNM += kinematics.Distance(speedKt, float64(dt))
	a.History = append(a.History, Sample{Tick: now + dt, DistanceNM: a.DistanceNM})
	a.burn(dt)
	return nil
}

// Reposition places a suspended aircraft at distanceNM, recorded at tick
func (a *Aircraft) Reposition(tick int, distanceNM float64) error {
	if a.Status.Terminal() {
		return fmt.Errorf("reposition aircraft %d: %w", a.ID, ErrTerminal)
	}
	a.DistanceNM = distanceNM
	a.History = append(a.History, Sample{Tick: tick, DistanceNM: distanceNM})
	return nil
}

// Suspend takes an approaching aircraft out of the queue at tick, remembering
// entryNM as the distance it resumes from
func (a *Aircraft) Suspend(tick int, mode SuspendMode, entryNM float64) error {
	if a.Status != StatusApproaching {
		return fmt.Errorf("suspend aircraft %d while %s: %w", a.ID, a.Status, ErrBadTransition)
	}
	a.Status = StatusSuspended
	a.Suspension = mode
	a.SuspendStartTick = tick
	a.SuspendEntryDistance = entryNM
	a.HoldOutbound = false
	a.Suspensions++
	return nil
}

// Resume returns a suspended aircraft to the approach at distanceNM.
// The commanded speed is kept when legal there, otherwise the nearer band
// bound is taken.
func (a *Aircraft) Resume(tick int, distanceNM float64, env *Envelope) error {
	if a.Status != StatusSuspended {
		return fmt.Errorf("resume aircraft %d while %s: %w", a.ID, a.Status, ErrBadTransition)
	}
	if err := a.Reposition(tick, distanceNM); err != nil {
		return err
	}
	a.Conform(env)
	a.Status = StatusApproaching
	a.Suspension = SuspendNone
	return nil
}

// Divert sends the aircraft to the alternate at tick
func (a *Aircraft) Divert(tick int) error {
	if a.Status.Terminal() {
		return fmt.Errorf("divert aircraft %d: %w", a.ID, ErrTerminal)
	}
	a.Status = StatusDiverted
	a.TerminalTick = tick
	a.Suspension = SuspendNone
	return nil
}

// HoldStep flies one leg of the racetrack between innerNM and outerNM at
// speedKt. An aircraft outside the fixes first flies toward the hold.
func (a *Aircraft) HoldStep(now, dt int, speedKt, innerNM, outerNM float64) error {
	if a.Status != StatusSuspended {
		return fmt.Errorf("hold aircraft %d while %s: %w", a.ID, a.Status, ErrBadTransition)
	}

	step := kinematics.Distance(speedKt, float64(dt))
	switch {
	case a.DistanceNM > outerNM:
		a.DistanceNM = math.Max(outerNM, a.DistanceNM-step)
	case a.DistanceNM < innerNM:
		a.DistanceNM = math.Min(innerNM, a.DistanceNM+step)
		a.HoldOutbound = true
	case a.HoldOutbound:
		a.DistanceNM = math.Min(outerNM, a.DistanceNM+step)
		a.HoldOutbound = a.DistanceNM < outerNM
	default:
		a.DistanceNM = math.Max(innerNM, a.DistanceNM-step)
		a.HoldOutbound = a.DistanceNM <= innerNM
	}

	a.History = append(a.History, Sample{Tick: now + dt, DistanceNM: a.DistanceNM})
	a.burn(dt)
	return nil
}

// Established reports whether the aircraft is inside the holding fixes
func (a *Aircraft) Established(innerNM, outerNM float64) bool {
	return innerNM <= a.DistanceNM && a.DistanceNM <= outerNM
}

// Conform brings the commanded speed into the band at the current distance
func (a *Aircraft) Conform(env *Envelope) {
	lo, hi := env.Limits(a.DistanceNM)
	a.SpeedKt = math.Min(hi, math.Max(lo, a.SpeedKt))
}

// Hold keeps an approaching aircraft in place for one tick (runway closed)
func (a *Aircraft) Hold(now int) {
	a.WaitTicks++
	a.History = append(a.History, Sample{Tick: now + 1, DistanceNM: a.DistanceNM})
	a.burn(1)
}

// burn consumes fuel for dt airborne minutes
func (a *Aircraft) burn(dt int) {
	if a.Fuel == nil {
		return
	}
	a.Fuel.RemainingKg -= a.Fuel.BurnKgPerMin * float64(dt)
}

package approach

import (
	"fmt"
	"log/slog"
	"math"

	"approach_sim/internal/kinematics"
	"approach_sim/internal/models"
)

// Controller assigns speeds along the approach queue so consecutive
// aircraft keep their landing separation
type Controller struct {
	env    *models.Envelope
	params Params
	trace  func(Assignment)
}

// Rule is the branch of the controller pass that decided an aircraft
type Rule int

const (
	RuleHead    Rule = iota // first aircraft holding a slot
	RuleFree                // already separated, flies the band maximum
	RuleReduced             // slowed one step below its predecessor
	RuleEvicted             // lost its slot
)

var ruleNames = [...]string{"head", "free", "reduced", "evicted"}

func (r Rule) String() string {
	if r < 0 || int(r) >= len(ruleNames) {
		return fmt.Sprintf("rule(%d)", int(r))
	}
	return ruleNames[r]
}

// Assignment records one decision of a controller pass. SeparationMin is
// measured at the speed the aircraft had before the pass; GapMin is the
// projected gap at the reduced speed and is only set for reduced and
// evicted aircraft.
type Assignment struct {
	Tick          int
	ID            int
	Predecessor   int // zero for the head
	Rule          Rule
	SpeedKt       float64 // commanded speed after the decision
	RequiredKt    float64
	SeparationMin float64
	GapMin        float64
}

// NewController creates a controller over env
func NewController(env *models.Envelope, params Params) *Controller {
	return &Controller{env: env, params: params}
}

// Trace registers fn to receive every decision of later passes
func (c *Controller) Trace(fn func(Assignment)) {
	c.trace = fn
}

func (c *Controller) record(as Assignment) {
	if c.trace != nil {
		c.trace(as)
	}
}

// Admit sets the initial speed of a new arrival. When the previous arrival
// entered less than the min separation earlier, the newcomer starts one
// speed step below it.
func (c *Controller) Admit(prev, a *models.Aircraft) error {
	if prev == nil || float64(a.AppearTick-prev.AppearTick) >= c.params.MinSeparationMin {
		return nil
	}
	lo, hi := c.env.Limits(a.DistanceNM)
	speed := math.Min(hi, math.Max(lo, prev.SpeedKt-c.params.SpeedStepKt))
	if err := a.SetSpeed(speed, c.env); err != nil {
		return fmt.Errorf("failed to admit aircraft: %w", err)
	}
	return nil
}

// Separate runs one controller pass over queue at tick now, front to back.
// It returns the aircraft that keep their slot, in order, and those that
// lost it. Evictions are applied once the pass completes: each evicted
// aircraft is suspended at its current distance. The input slice is not
// modified.
func (c *Controller) Separate(now int, queue []*models.Aircraft) (kept, evicted []*models.Aircraft, err error) {
	kept = make([]*models.Aircraft, 0, len(queue))

	for _, a := range queue {
		if a.Status != models.StatusApproaching {
			kept = append(kept, a)
			continue
		}

		lo, hi := c.env.Limits(a.DistanceNM)

		if len(kept) == 0 {
			if err := a.SetSpeed(hi, c.env); err != nil {
				return nil, nil, err
			}
			kept = append(kept, a)
			c.record(Assignment{Tick: now, ID: a.ID, Rule: RuleHead, SpeedKt: hi})
			continue
		}

		// the predecessor is the nearest aircraft still holding its slot
		prev := kept[len(kept)-1]
		sep := separation(now, prev, a)
		if sep >= c.params.MinSeparationMin {
			if err := a.SetSpeed(hi, c.env); err != nil {
				return nil, nil, err
			}
			kept = append(kept, a)
			c.record(Assignment{Tick: now, ID: a.ID, Predecessor: prev.ID, Rule: RuleFree, SpeedKt: hi, SeparationMin: sep})
			continue
		}

		required := prev.SpeedKt - c.params.SpeedStepKt
		candidate := math.Min(hi, math.Max(lo, required))
		gap := float64(now) + kinematics.ETAMinutes(a.DistanceNM, candidate) - prev.ProjectedLandingTick(now)
		as := Assignment{
			Tick:          now,
			ID:            a.ID,
			Predecessor:   prev.ID,
			Rule:          RuleReduced,
			SpeedKt:       candidate,
			RequiredKt:    required,
			SeparationMin: sep,
			GapMin:        gap,
		}

		if required < lo || gap < c.params.BufferMin {
			slog.Debug("Aircraft cannot hold its slot",
				"tick", now,
				"id", a.ID,
				"distance_nm", a.DistanceNM,
				"predecessor", prev.ID,
				"required_kt", required,
				"gap_min", gap,
			)
			evicted = append(evicted, a)
			as.Rule, as.SpeedKt = RuleEvicted, a.SpeedKt
			c.record(as)
			continue
		}

		if err := a.SetSpeed(candidate, c.env); err != nil {
			return nil, nil, err
		}
		kept = append(kept, a)
		c.record(as)
	}

	for _, a := range evicted {
		if err := a.Suspend(now, SuspendModeFor(a), a.DistanceNM); err != nil {
			return nil, nil, err
		}
	}

	return kept, evicted, nil
}

// SuspendModeFor is the maneuver an aircraft flies once it loses its slot
func SuspendModeFor(a *models.Aircraft) models.SuspendMode {
	if a.Variant == models.VariantFuelAware {
		return models.SuspendHolding
	}
	return models.SuspendRejoin
}

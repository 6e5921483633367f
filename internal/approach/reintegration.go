package approach

import (
	"log/slog"

	"approach_sim/internal/models"
)

// Reintegrator flies the suspended set for one tick and splices aircraft back
// into the queue when a usable gap appears
type Reintegrator struct {
	env     *models.Envelope
	params  Params
	holding Holding

	// outbound is checked after each rejoin step, hold before each hold step
	outbound Diverts
	hold     Diverts
}

// NewReintegrator creates a reintegration search. A nil policy never diverts.
func NewReintegrator(env *models.Envelope, params Params, holding Holding, outbound, hold Diverts) *Reintegrator {
	if outbound == nil {
		outbound = Never
	}
	if hold == nil {
		hold = Never
	}
	return &Reintegrator{
		env:      env,
		params:   params,
		holding:  holding,
		outbound: outbound,
		hold:     hold,
	}
}

// Reintegration is the outcome of one reintegration pass
type Reintegration struct {
	Queue     []*models.Aircraft // queue with rejoined aircraft spliced in
	Suspended []*models.Aircraft // still suspended, in their original order
	Rejoined  []*models.Aircraft
	Diverted  []*models.Aircraft
}

// Step processes every suspended aircraft once at tick now. Neither input
// slice is modified.
func (r *Reintegrator) Step(now int, queue, suspended []*models.Aircraft) (Reintegration, error) {
	out := Reintegration{
		Queue:     append(make([]*models.Aircraft, 0, len(queue)+len(suspended)), queue...),
		Suspended: make([]*models.Aircraft, 0, len(suspended)),
	}

	for _, a := range suspended {
		var entryNM float64

		switch a.Suspension {
		case models.SuspendHolding:
			if r.hold(a) {
				if err := r.divert(now, a, &out); err != nil {
					return Reintegration{}, err
				}
				continue
			}
			if err := a.HoldStep(now, 1, r.holding.SpeedKt, r.holding.InnerNM, r.holding.OuterNM); err != nil {
				return Reintegration{}, err
			}
			if !a.Established(r.holding.InnerNM, r.holding.OuterNM) {
				out.Suspended = append(out.Suspended, a)
				continue
			}
			entryNM = r.holding.InnerNM

		default:
			if err := a.Outbound(now, 1, r.params.RejoinSpeedKt); err != nil {
				return Reintegration{}, err
			}
			if r.outbound(a) {
				if err := r.divert(now, a, &out); err != nil {
					return Reintegration{}, err
				}
				continue
			}
			entryNM = a.SuspendEntryDistance
		}

		j := r.findGap(now, out.Queue)
		if j < 0 {
			out.Suspended = append(out.Suspended, a)
			continue
		}

		if err := a.Resume(now+1, entryNM, r.env); err != nil {
			return Reintegration{}, err
		}
		out.Queue = insertAt(out.Queue, j, a)
		out.Rejoined = append(out.Rejoined, a)

		slog.Debug("Aircraft rejoined the approach",
			"tick", now,
			"id", a.ID,
			"position", j,
			"distance_nm", entryNM,
			"suspended_min", now-a.SuspendStartTick,
		)
	}

	return out, nil
}

// findGap returns the first queue position j whose predecessor pair leaves
// at least the rejoin gap, or -1
func (r *Reintegrator) findGap(now int, queue []*models.Aircraft) int {
	for j := 1; j < len(queue); j++ {
		if separation(now, queue[j-1], queue[j]) >= r.params.RejoinGapMin {
			return j
		}
	}
	return -1
}

func (r *Reintegrator) divert(now int, a *models.Aircraft, out *Reintegration) error {
	if err := a.Divert(now); err != nil {
		return err
	}
	out.Diverted = append(out.Diverted, a)
	slog.Debug("Aircraft diverted to the alternate",
		"tick", now,
		"id", a.ID,
		"distance_nm", a.DistanceNM,
		"suspended_min", now-a.SuspendStartTick,
	)
	return nil
}

func insertAt(queue []*models.Aircraft, j int, a *models.Aircraft) []*models.Aircraft {
	queue = append(queue, nil)
	copy(queue[j+1:], queue[j:])
	queue[j] = a
	return queue
}

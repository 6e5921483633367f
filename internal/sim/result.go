package sim

import (
	"approach_sim/internal/approach"
	"approach_sim/internal/models"
)

// ClosureSummary describes the runway closure of a run
type ClosureSummary struct {
	StartTick int                   `msgpack:"start_tick"`
	EndTick   int                   `msgpack:"end_tick"`
	Mode      string                `msgpack:"mode"`
	Stats     approach.ClosureStats `msgpack:"stats"`
}

// Result is the outcome of a run: every aircraft ever created, in creation
// order, with its terminal status and full history
type Result struct {
	Ticks    int                `msgpack:"ticks"`
	Aircraft []*models.Aircraft `msgpack:"aircraft"`
	Counters Counters           `msgpack:"counters"`
	InFlight int                `msgpack:"in_flight"`
	Closure  *ClosureSummary    `msgpack:"closure,omitempty"`
}

// Result collects the run's outcome so far
func (d *Driver) Result() *Result {
	r := &Result{
		Ticks:    d.tick,
		Aircraft: d.aircraft,
		Counters: d.counters,
		InFlight: len(d.queue) + len(d.suspended),
	}
	if d.closure != nil {
		r.Closure = &ClosureSummary{
			StartTick: d.closure.StartTick,
			EndTick:   d.closure.EndTick(),
			Mode:      d.closure.Mode.String(),
			Stats:     d.closureStats,
		}
	}
	return r
}

// ByStatus returns the aircraft of the run in status s
func (r *Result) ByStatus(s models.Status) []*models.Aircraft {
	var out []*models.Aircraft
	for _, a := range r.Aircraft {
		if a.Status == s {
			out = append(out, a)
		}
	}
	return out
}

// Package sim drives one simulation run: it advances the clock a minute at
// a time, feeds arrivals into the corridor and runs the approach components
// in a fixed order.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"approach_sim/internal/approach"
	"approach_sim/internal/arrivals"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
)

// ErrFinished is returned by Step once every tick has run
var ErrFinished = errors.New("run finished")

// ArrivalSource yields how many aircraft enter the corridor at a tick
type ArrivalSource interface {
	Arrivals(tick int) int
}

// Counters are the running totals of a run
type Counters struct {
	Created       int `msgpack:"created"`
	Landed        int `msgpack:"landed"`
	Diverted      int `msgpack:"diverted"`
	Interruptions int `msgpack:"interruptions"`
	Suspensions   int `msgpack:"suspensions"`
	Rejoins       int `msgpack:"rejoins"`
}

// Driver owns every aircraft of one run. It is not safe for concurrent use;
// parallel trials each build their own Driver.
type Driver struct {
	cfg      Config
	env      *models.Envelope
	src      rand.Source
	arrivals ArrivalSource

	controller   *approach.Controller
	reintegrator *approach.Reintegrator
	clearance    models.LandingClearance
	closure      *approach.Closure
	closureStats approach.ClosureStats

	tick      int
	aircraft  []*models.Aircraft
	queue     []*models.Aircraft
	suspended []*models.Aircraft
	counters  Counters

	observer Observer
}

// New validates cfg and prepares a run. When arr is nil arrivals follow a
// Bernoulli process at cfg.ArrivalProbability drawn from src.
func New(cfg Config, src rand.Source, arr ArrivalSource) (*Driver, error) {
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	env, err := models.NewEnvelope(cfg.Bands)
	if err != nil {
		return nil, err
	}

	if arr == nil {
		arr = &arrivals.Bernoulli{P: cfg.ArrivalProbability, Src: src}
	}

	var hold approach.Diverts
	if cfg.Diversion == DiversionFuel {
		hold = approach.FuelBound(cfg.Fuel)
	}

	d := &Driver{
		cfg:          cfg,
		env:          env,
		src:          src,
		arrivals:     arr,
		controller:   approach.NewController(env, cfg.Approach),
		reintegrator: approach.NewReintegrator(env, cfg.Approach, cfg.Holding, approach.DistanceBound(cfg.Approach.CorridorOuterNM), hold),
	}

	if cfg.Variant == models.VariantInterruptible {
		d.clearance = cfg.Interruption.Clearance(src)
	}

	if cfg.Closure.Enabled {
		d.closure = newClosure(cfg, src)
	}

	return d, nil
}

func newClosure(cfg Config, src rand.Source) *approach.Closure {
	cl := cfg.Closure
	start := cl.StartTick
	if cl.RandomStart {
		start = approach.RandomStart(src, cfg.TotalTicks, cl.DurationTicks)
	}

	c := &approach.Closure{
		StartTick:     start,
		DurationTicks: cl.DurationTicks,
		ThresholdNM:   cl.ThresholdNM,
		Mode:          approach.ClosureStraight,
	}
	if cfg.Diversion == DiversionWait {
		c.Mode = approach.ClosureHold
		c.Wait = approach.WaitBound(cl.WaitCeilingTicks, cl.CloseInWaitTicks, cl.CloseInNM)
	}
	return c
}

// Observe registers fn to receive a snapshot after every tick
func (d *Driver) Observe(fn Observer) {
	d.observer = fn
}

// Tick is the next tick to run
func (d *Driver) Tick() int {
	return d.tick
}

// Done reports whether every tick has run
func (d *Driver) Done() bool {
	return d.tick >= d.cfg.TotalTicks
}

// Run steps until the last tick or until ctx is cancelled
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	for !d.Done() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := d.Step(); err != nil {
			return nil, err
		}
	}

	slog.Debug("Run complete",
		"ticks", d.tick,
		"created", d.counters.Created,
		"landed", d.counters.Landed,
		"diverted", d.counters.Diverted,
	)
	return d.Result(), nil
}

// Step runs one tick: intake, then either the closure step or the
// controller, reintegration and position update
func (d *Driver) Step() error {
	if d.Done() {
		return ErrFinished
	}
	now := d.tick

	if err := d.intake(now); err != nil {
		return fmt.Errorf("tick %d: %w", now, err)
	}

	if d.closure.Active(now) {
		kept, diverted, err := d.closure.Step(now, d.queue, d.env, &d.closureStats)
		if err != nil {
			return fmt.Errorf("tick %d: runway closure: %w", now, err)
		}
		d.queue = kept
		d.counters.Diverted += len(diverted)
	} else if err := d.manage(now); err != nil {
		return fmt.Errorf("tick %d: %w", now, err)
	}

	d.tick++
	if d.observer != nil {
		d.observer(d.Snapshot())
	}
	return nil
}

func (d *Driver) intake(now int) error {
	for n := d.arrivals.Arrivals(now); n > 0; n-- {
		a := models.NewAircraft(len(d.aircraft)+1, d.cfg.Variant, now, d.cfg.InitialDistanceNM, d.env, d.src)
		if a.Variant == models.VariantFuelAware {
			a.Fuel = d.cfg.Fuel.Fill(d.src)
		}

		var prev *models.Aircraft
		if len(d.queue) > 0 {
			prev = d.queue[len(d.queue)-1]
		}
		if err := d.controller.Admit(prev, a); err != nil {
			return err
		}

		d.aircraft = append(d.aircraft, a)
		d.queue = append(d.queue, a)
		d.counters.Created++
	}
	return nil
}

func (d *Driver) manage(now int) error {
	kept, evicted, err := d.controller.Separate(now, d.queue)
	if err != nil {
		return fmt.Errorf("failed to separate queue: %w", err)
	}
	d.counters.Suspensions += len(evicted)

	pending := append(d.suspended, evicted...)
	out, err := d.reintegrator.Step(now, kept, pending)
	if err != nil {
		return fmt.Errorf("failed to reintegrate: %w", err)
	}
	d.queue, d.suspended = out.Queue, out.Suspended
	d.counters.Rejoins += len(out.Rejoined)
	d.counters.Diverted += len(out.Diverted)

	return d.advance(now)
}

// advance moves the queue one tick inbound
func (d *Driver) advance(now int) error {
	airborne := make([]*models.Aircraft, 0, len(d.queue))

	for _, a := range d.queue {
		touchdown, err := a.Advance(now, 1, d.clearance)
		if err != nil {
			return fmt.Errorf("failed to advance aircraft: %w", err)
		}

		switch touchdown {
		case models.Landed:
			d.counters.Landed++
		case models.GoAround:
			if err := d.cfg.Interruption.GoAround(now+1, a); err != nil {
				return err
			}
			d.suspended = append(d.suspended, a)
			d.counters.Interruptions++
			d.counters.Suspensions++
		default:
			airborne = append(airborne, a)
		}
	}

	d.queue = airborne
	return nil
}

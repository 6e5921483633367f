package sim

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/brunoga/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"approach_sim/internal/approach"
	"approach_sim/internal/arrivals"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
)

func busyConfig() Config {
	cfg := DefaultConfig()
	cfg.ArrivalProbability = 0.3
	cfg.TotalTicks = 600
	return cfg
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "probability above one", mutate: func(c *Config) { c.ArrivalProbability = 1.5 }},
		{name: "negative probability", mutate: func(c *Config) { c.ArrivalProbability = -0.1 }},
		{name: "no ticks", mutate: func(c *Config) { c.TotalTicks = 0 }},
		{name: "empty speed table", mutate: func(c *Config) { c.Bands = nil }},
		{name: "unknown diversion", mutate: func(c *Config) { c.Diversion = "teleport" }},
		{name: "wait without closure", mutate: func(c *Config) { c.Diversion = DiversionWait }},
		{name: "fuel without fuel variant", mutate: func(c *Config) { c.Diversion = DiversionFuel }},
		{name: "fuel variant without fuel diversion", mutate: func(c *Config) { c.Variant = models.VariantFuelAware }},
		{name: "closure longer than run", mutate: func(c *Config) {
			c.Closure.Enabled = true
			c.Closure.DurationTicks = c.TotalTicks + 1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, rand.New(1), nil)
			assert.Error(t, err)
		})
	}

	_, err := New(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestNewRejectsDistanceBeyondTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = models.DefaultBands()[1:]
	cfg.InitialDistanceNM = 120

	_, err := New(cfg, rand.New(1), nil)
	assert.True(t, errors.Is(err, models.ErrNoBand))
}

func TestSameTickArrivalsSuspendThenDivert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = []models.Band{{LowerNM: 100, UpperNM: math.Inf(1), MinKt: 300, MaxKt: 500}}
	cfg.TotalTicks = 5

	d, err := New(cfg, &rand.Fixed{Values: []float64{0.5}}, arrivals.NewSchedule(0, 0))
	require.NoError(t, err)

	require.NoError(t, d.Step())
	res := d.Result()

	require.Len(t, res.Aircraft, 2)
	first, second := res.Aircraft[0], res.Aircraft[1]
	assert.Equal(t, models.StatusApproaching, first.Status)
	assert.Equal(t, 500.0, first.SpeedKt)

	// suspended at the corridor entry, it is past 100 nm after one rejoin step
	assert.Equal(t, 1, second.Suspensions)
	assert.Equal(t, models.StatusDiverted, second.Status)
	assert.Equal(t, 0, second.TerminalTick)
	assert.Equal(t, Counters{Created: 2, Diverted: 1, Suspensions: 1}, res.Counters)
}

func TestArrivalsAtConsecutiveTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = []models.Band{{LowerNM: 100, UpperNM: math.Inf(1), MinKt: 300, MaxKt: 500}}
	cfg.TotalTicks = 5

	d, err := New(cfg, &rand.Fixed{Values: []float64{0.5}}, arrivals.NewSchedule(0, 1))
	require.NoError(t, err)

	require.NoError(t, d.Step())
	snap := d.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.InDelta(t, 100-500.0/60, snap.Queue[0].DistanceNM, 1e-9)

	require.NoError(t, d.Step())
	res := d.Result()

	require.Len(t, res.Aircraft, 2)
	first, second := res.Aircraft[0], res.Aircraft[1]
	assert.Equal(t, models.StatusApproaching, first.Status)
	assert.Equal(t, 500.0, first.SpeedKt)

	// admitted one step below the leader, a 1.5 min gap cannot grow to 5
	assert.Equal(t, 480.0, second.SpeedKt)
	assert.Equal(t, 1, second.Suspensions)
	assert.Equal(t, 1, second.SuspendStartTick)
	assert.Equal(t, models.StatusDiverted, second.Status)
	assert.Equal(t, 1, second.TerminalTick)
	assert.Equal(t, Counters{Created: 2, Diverted: 1, Suspensions: 1}, res.Counters)
}

func TestControllerPassKeepsSeparation(t *testing.T) {
	cfg := busyConfig()
	rules := make(map[approach.Rule]int)

	for seed := int64(1); seed <= 5; seed++ {
		d, err := New(cfg, rand.New(seed), nil)
		require.NoError(t, err)

		d.controller.Trace(func(as approach.Assignment) {
			rules[as.Rule]++
			switch as.Rule {
			case approach.RuleFree:
				assert.GreaterOrEqual(t, as.SeparationMin, cfg.Approach.MinSeparationMin,
					"seed %d tick %d aircraft %d", seed, as.Tick, as.ID)
			case approach.RuleReduced:
				assert.GreaterOrEqual(t, as.GapMin, cfg.Approach.BufferMin,
					"seed %d tick %d aircraft %d", seed, as.Tick, as.ID)
				assert.Less(t, as.SeparationMin, cfg.Approach.MinSeparationMin)
			case approach.RuleEvicted:
				lo, _ := d.env.Limits(d.aircraft[as.ID-1].DistanceNM)
				assert.True(t, as.RequiredKt < lo || as.GapMin < cfg.Approach.BufferMin,
					"seed %d tick %d aircraft %d kept its slot", seed, as.Tick, as.ID)
			}
		})

		_, err = d.Run(context.Background())
		require.NoError(t, err)
	}

	assert.Positive(t, rules[approach.RuleFree])
	assert.Positive(t, rules[approach.RuleReduced])
}

func TestRecordedArrivalsMatchDefaultStream(t *testing.T) {
	cfg := busyConfig()

	plain, err := New(cfg, rand.New(21), nil)
	require.NoError(t, err)
	want, err := plain.Run(context.Background())
	require.NoError(t, err)

	src := rand.New(21)
	rec := &arrivals.Record{Bernoulli: arrivals.Bernoulli{P: cfg.ArrivalProbability, Src: src}}
	d, err := New(cfg, src, rec)
	require.NoError(t, err)
	got, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want.Counters, got.Counters)
	require.Len(t, rec.Ticks(), got.Counters.Created)
	for i, a := range got.Aircraft {
		assert.Equal(t, a.AppearTick, rec.Ticks()[i])
	}
}

func TestNoDoubleCounting(t *testing.T) {
	scenarios := map[string]func(*Config){
		"base": func(*Config) {},
		"interruptible": func(c *Config) {
			c.Variant = models.VariantInterruptible
			c.Interruption.Probability = 0.3
		},
		"fuel aware": func(c *Config) {
			c.Variant = models.VariantFuelAware
			c.Diversion = DiversionFuel
		},
		"closure straight": func(c *Config) {
			c.Closure.Enabled = true
			c.Closure.StartTick = 200
		},
		"closure hold": func(c *Config) {
			c.Closure.Enabled = true
			c.Closure.StartTick = 200
			c.Diversion = DiversionWait
		},
	}

	for name, mutate := range scenarios {
		t.Run(name, func(t *testing.T) {
			cfg := busyConfig()
			mutate(&cfg)

			d, err := New(cfg, rand.New(11), nil)
			require.NoError(t, err)

			ticks := 0
			d.Observe(func(s Snapshot) {
				ticks++
				c := s.Counters
				require.Equal(t, c.Created, s.InFlight()+c.Landed+c.Diverted, "tick %d", s.Tick)
			})

			res, err := d.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, cfg.TotalTicks, ticks)

			assert.Len(t, res.Aircraft, res.Counters.Created)
			assert.Len(t, res.ByStatus(models.StatusLanded), res.Counters.Landed)
			assert.Len(t, res.ByStatus(models.StatusDiverted), res.Counters.Diverted)
			assert.Equal(t, res.InFlight, res.Counters.Created-res.Counters.Landed-res.Counters.Diverted)

			for i, a := range res.Aircraft {
				assert.Equal(t, i+1, a.ID)
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	run := func() []byte {
		cfg := busyConfig()
		cfg.Variant = models.VariantInterruptible
		d, err := New(cfg, rand.New(2024), nil)
		require.NoError(t, err)
		res, err := d.Run(context.Background())
		require.NoError(t, err)

		b, err := msgpack.Marshal(res.Aircraft)
		require.NoError(t, err)
		return b
	}

	first, second := run(), run()
	assert.NotEmpty(t, first)
	assert.True(t, bytes.Equal(first, second))
}

func TestObserverDoesNotChangeOutcome(t *testing.T) {
	run := func(observe bool) *Result {
		d, err := New(busyConfig(), rand.New(5), nil)
		require.NoError(t, err)
		if observe {
			d.Observe(func(s Snapshot) {
				// observers get copies and cannot reach the run
				for _, a := range s.Queue {
					a.SpeedKt = 1
					a.DistanceNM = 0
				}
			})
		}
		res, err := d.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, run(false), run(true))
}

func TestTerminalMonotonicity(t *testing.T) {
	d, err := New(busyConfig(), rand.New(9), nil)
	require.NoError(t, err)

	frozen := map[int]*models.Aircraft{}
	for !d.Done() {
		require.NoError(t, d.Step())
		for _, a := range d.Result().Aircraft {
			if !a.Status.Terminal() {
				continue
			}
			if before, ok := frozen[a.ID]; ok {
				require.Equal(t, before, a, "aircraft %d changed after terminating", a.ID)
				continue
			}
			frozen[a.ID] = deep.MustCopy(a)
		}
	}

	assert.NotEmpty(t, frozen)
	assert.True(t, errors.Is(d.Step(), ErrFinished))
}

func TestSpeedEnvelopeContainment(t *testing.T) {
	cfg := busyConfig()
	env := models.MustEnvelope(cfg.Bands)

	d, err := New(cfg, rand.New(3), nil)
	require.NoError(t, err)

	checked := 0
	d.Observe(func(s Snapshot) {
		for _, a := range s.Queue {
			// the speed was commanded at the distance before this tick's step
			at := a.History[len(a.History)-2].DistanceNM
			require.True(t, env.Permits(at, a.SpeedKt),
				"tick %d aircraft %d: %.1f kt at %.2f nm", s.Tick, a.ID, a.SpeedKt, at)
			checked++
		}
	})

	_, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, checked)
}

func TestReintegrationResumesAtEntryDistance(t *testing.T) {
	cfg := busyConfig()
	d, err := New(cfg, rand.New(17), nil)
	require.NoError(t, err)

	suspendedAt := map[int]float64{}
	rejoined := 0
	d.Observe(func(s Snapshot) {
		// queue aircraft seen suspended on the previous tick have just rejoined
		for _, a := range s.Queue {
			if entry, ok := suspendedAt[a.ID]; ok {
				resumed := a.History[len(a.History)-2].DistanceNM
				require.Equal(t, entry, resumed, "aircraft %d", a.ID)
				rejoined++
			}
		}
		suspendedAt = map[int]float64{}
		for _, a := range s.Suspended {
			suspendedAt[a.ID] = a.SuspendEntryDistance
		}
	})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Counters.Rejoins > 0, rejoined > 0)
}

func TestClosureBlocksLandings(t *testing.T) {
	for _, diversion := range []Diversion{DiversionDistance, DiversionWait} {
		t.Run(string(diversion), func(t *testing.T) {
			cfg := busyConfig()
			cfg.Closure.Enabled = true
			cfg.Closure.StartTick = 300
			cfg.Closure.DurationTicks = 60
			cfg.Diversion = diversion

			d, err := New(cfg, rand.New(21), nil)
			require.NoError(t, err)
			res, err := d.Run(context.Background())
			require.NoError(t, err)

			require.NotNil(t, res.Closure)
			assert.Equal(t, 300, res.Closure.StartTick)
			assert.Equal(t, 360, res.Closure.EndTick)
			assert.Positive(t, res.Closure.Stats.MaxQueue)
			assert.Positive(t, res.Closure.Stats.Affected)

			for _, a := range res.ByStatus(models.StatusLanded) {
				// a touchdown at tick t+1 happened during tick t
				during := a.TerminalTick-1 >= 300 && a.TerminalTick-1 < 360
				assert.False(t, during, "aircraft %d landed at %d", a.ID, a.TerminalTick)
			}
		})
	}
}

func TestClosureRandomStart(t *testing.T) {
	cfg := busyConfig()
	cfg.Closure.Enabled = true
	cfg.Closure.RandomStart = true

	d, err := New(cfg, rand.New(4), nil)
	require.NoError(t, err)
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Closure)
	assert.GreaterOrEqual(t, res.Closure.StartTick, 0)
	assert.LessOrEqual(t, res.Closure.EndTick, cfg.TotalTicks)
}

func TestInterruptionsReenter(t *testing.T) {
	cfg := busyConfig()
	cfg.Variant = models.VariantInterruptible
	cfg.Interruption.Probability = 0.5

	d, err := New(cfg, rand.New(8), nil)
	require.NoError(t, err)
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Positive(t, res.Counters.Interruptions)
	total := 0
	for _, a := range res.Aircraft {
		total += a.Interruptions
	}
	assert.Equal(t, res.Counters.Interruptions, total)
}

func TestFuelAwareBurns(t *testing.T) {
	cfg := busyConfig()
	cfg.Variant = models.VariantFuelAware
	cfg.Diversion = DiversionFuel

	d, err := New(cfg, rand.New(13), nil)
	require.NoError(t, err)
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	plan := cfg.Fuel
	for _, a := range res.ByStatus(models.StatusLanded) {
		require.NotNil(t, a.Fuel)
		burnt := plan.MaxFraction*plan.CapacityKg - a.Fuel.RemainingKg
		assert.Positive(t, burnt, "aircraft %d", a.ID)
		assert.Equal(t, models.VariantFuelAware, a.Variant)
	}
}

func TestRunCancelled(t *testing.T) {
	d, err := New(busyConfig(), rand.New(1), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.Tick())
}

func TestDumpObserver(t *testing.T) {
	cfg := busyConfig()
	cfg.TotalTicks = 20

	d, err := New(cfg, rand.New(1), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	counted := 0
	d.Observe(Chain(DumpObserver(&buf, 10), func(Snapshot) { counted++ }, nil))

	_, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, counted)
	assert.Contains(t, buf.String(), "Counters")
}

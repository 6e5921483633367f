// Package experiment runs many independent trials of the simulation over a
// bounded worker pool and aggregates them per arrival probability.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"approach_sim/internal/analysis"
	"approach_sim/internal/database"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
	"approach_sim/internal/scheduler"
	"approach_sim/internal/sim"
	"approach_sim/internal/tasks"
)

// Builder returns the run configuration at arrival probability p
type Builder func(p float64) (sim.Config, error)

// Config holds experiment settings
type Config struct {
	Trials           int       // per arrival probability
	Workers          int       // concurrent trials
	Lambdas          []float64 // arrival probabilities
	Seed             int64
	DayStartHour     int
	StoreAircraft    bool // persist aircraft and history, not only run totals
	Progress         bool
	ProgressInterval time.Duration
	BatchSize        int
	BatchTimeout     time.Duration
}

// Outcome is the aggregated result of an experiment
type Outcome struct {
	ID        string
	Summaries []analysis.TrialSummary // in Lambdas order
	Stored    int
	StoreErr  error // set when some runs could not be committed
}

// Experiment represents one batch of trials
type Experiment struct {
	id      string
	cfg     Config
	configs []sim.Config
	repo    database.RunWriter
}

// New validates cfg and every run configuration before any trial starts.
// repo may be nil when runs are not persisted.
func New(cfg Config, build Builder, repo database.RunWriter) (*Experiment, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("trials must be greater than 0")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be greater than 0")
	}
	if len(cfg.Lambdas) == 0 {
		return nil, fmt.Errorf("at least one arrival probability is required")
	}
	if build == nil {
		return nil, fmt.Errorf("run configuration builder is required")
	}

	configs := make([]sim.Config, len(cfg.Lambdas))
	for i, p := range cfg.Lambdas {
		rc, err := build(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build run configuration at p=%g: %w", p, err)
		}
		if err := rc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid run configuration at p=%g: %w", p, err)
		}
		configs[i] = rc
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2 * time.Second
	}

	return &Experiment{
		id:      uuid.NewString(),
		cfg:     cfg,
		configs: configs,
		repo:    repo,
	}, nil
}

// ID identifies the experiment in stored records
func (e *Experiment) ID() string {
	return e.id
}

// Run executes every trial. Each trial owns its Driver and a PCG stream
// derived from the seed and its index, so outcomes do not depend on the
// number of workers.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	total := e.cfg.Trials * len(e.cfg.Lambdas)
	progress := tasks.NewProgress(total)

	slog.Info("Starting experiment",
		"id", e.id,
		"trials", e.cfg.Trials,
		"lambdas", e.cfg.Lambdas,
		"workers", e.cfg.Workers,
	)

	sched := scheduler.New(ctx)
	if e.cfg.Progress {
		sched.AddTask(tasks.NewProgressTask(progress, e.cfg.ProgressInterval))
	}
	sched.Start()
	defer sched.Stop()

	var runChan chan *database.Run
	var collector *tasks.RunCollector
	var storeErr error
	collected := make(chan struct{})
	if e.repo != nil {
		runChan = make(chan *database.Run, 2*e.cfg.Workers)
		collector = tasks.NewRunCollectorWithConfig(e.repo, runChan, e.cfg.BatchSize, e.cfg.BatchTimeout)
		go func() {
			defer close(collected)
			// the collector drains until runChan closes
			if err := collector.Start(context.WithoutCancel(ctx)); err != nil {
				slog.Error("Run collector stopped", "experiment", e.id, "error", err)
				storeErr = err
			}
		}()
	} else {
		close(collected)
	}

	summaries := make([][]analysis.Summary, len(e.cfg.Lambdas))
	for i := range summaries {
		summaries[i] = make([]analysis.Summary, e.cfg.Trials)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for li := range e.cfg.Lambdas {
		for trial := 0; trial < e.cfg.Trials; trial++ {
			stream := uint64(li*e.cfg.Trials + trial)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				run, summary, err := e.trial(gctx, li, trial, stream)
				if err != nil {
					return err
				}
				summaries[li][trial] = summary
				progress.Done()

				if runChan != nil {
					select {
					case runChan <- run:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}
	}

	err := g.Wait()
	if runChan != nil {
		close(runChan)
	}
	<-collected

	if err != nil {
		return nil, fmt.Errorf("experiment %s failed: %w", e.id, err)
	}

	out := &Outcome{ID: e.id, StoreErr: storeErr}
	for li, p := range e.cfg.Lambdas {
		out.Summaries = append(out.Summaries, analysis.SummarizeTrials(p, summaries[li]))
	}
	if collector != nil {
		out.Stored = collector.Stored()
	}

	done, _ := progress.Completed()
	slog.Info("Experiment finished", "id", e.id, "completed", done, "stored", out.Stored)
	return out, nil
}

func (e *Experiment) trial(ctx context.Context, li, trial int, stream uint64) (*database.Run, analysis.Summary, error) {
	rc := e.configs[li]

	d, err := sim.New(rc, rand.NewStream(e.cfg.Seed, stream), nil)
	if err != nil {
		return nil, analysis.Summary{}, err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return nil, analysis.Summary{}, fmt.Errorf("trial %d at p=%g: %w", trial, rc.ArrivalProbability, err)
	}

	env := models.MustEnvelope(rc.Bands)
	summary := analysis.Summarize(res.Aircraft, env, rc.InitialDistanceNM, e.cfg.DayStartHour)

	slog.Debug("Trial finished",
		"arrival_probability", rc.ArrivalProbability,
		"trial", trial,
		"created", summary.Created,
		"diverted", summary.Diverted,
	)

	run := &database.Run{
		ID:                 uuid.NewString(),
		Experiment:         e.id,
		Trial:              trial,
		Seed:               e.cfg.Seed,
		Variant:            rc.Variant.String(),
		ArrivalProbability: rc.ArrivalProbability,
		Ticks:              res.Ticks,
		Created:            res.Counters.Created,
		Landed:             res.Counters.Landed,
		Diverted:           res.Counters.Diverted,
		InFlight:           res.InFlight,
		Interruptions:      res.Counters.Interruptions,
		Suspensions:        res.Counters.Suspensions,
		Rejoins:            res.Counters.Rejoins,
		DiversionFraction:  summary.DiversionFraction,
		CongestionFraction: summary.CongestionFraction,
		MeanDelayMin:       summary.MeanDelayMin,
		CreatedAt:          time.Now().UTC(),
	}
	if e.cfg.StoreAircraft {
		run.Aircraft = res.Aircraft
	}
	return run, summary, nil
}

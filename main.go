package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"approach_sim/internal/analysis"
	"approach_sim/internal/arrivals"
	"approach_sim/internal/config"
	"approach_sim/internal/database"
	"approach_sim/internal/experiment"
	"approach_sim/internal/export"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
	"approach_sim/internal/report"
	"approach_sim/internal/sim"
)

func initLogger(cfg *config.Config) {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		}
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	mode := flag.String("mode", "", "Run mode: single or trials (overrides config)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("APPROACH_SIM_CONFIG_PATH", *configPath)
	}
	if *mode != "" {
		os.Setenv("APPROACH_SIM_MODE", *mode)
	}

	cfg, err := config.Load()
	if err != nil {
		// logger isn't initialized yet
		basicLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		basicLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			slog.Info("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var db *database.DB
	if cfg.DBPath != "" {
		db, err = database.New(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	rep := report.New(os.Stdout, *noColor)

	switch strings.ToLower(cfg.Mode) {
	case "trials":
		err = runTrials(ctx, cfg, db, rep)
	default:
		err = runSingle(ctx, cfg, db, rep)
	}
	if err != nil {
		slog.Error("Simulation failed", "error", err)
		cancel()
		if db != nil {
			db.Close()
		}
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, cfg *config.Config, db *database.DB, rep *report.Reporter) error {
	rc, err := cfg.Run()
	if err != nil {
		return err
	}

	src := rand.New(cfg.Sim.Seed)

	// Record draws from the run's own source so the run matches a plain
	// Bernoulli stream for the same seed
	var arr arrivals.Recorded = &arrivals.Record{
		Bernoulli: arrivals.Bernoulli{P: rc.ArrivalProbability, Src: src},
	}
	if cfg.SchedulePath != "" {
		schedule, err := arrivals.LoadSchedule(cfg.SchedulePath)
		if err != nil {
			return err
		}
		slog.Info("Loaded arrival schedule", "path", cfg.SchedulePath, "arrivals", schedule.Len())
		arr = schedule
	}

	d, err := sim.New(rc, src, arr)
	if err != nil {
		return err
	}

	if cfg.DumpPath != "" {
		f, err := os.Create(cfg.DumpPath)
		if err != nil {
			return fmt.Errorf("failed to create dump file: %w", err)
		}
		defer f.Close()
		d.Observe(sim.DumpObserver(f, cfg.DumpEvery))
	}

	slog.Info("Starting run",
		"variant", rc.Variant.String(),
		"diversion", rc.Diversion,
		"arrival_probability", rc.ArrivalProbability,
		"ticks", rc.TotalTicks,
		"seed", cfg.Sim.Seed,
	)

	res, err := d.Run(ctx)
	if err != nil {
		return err
	}

	env := models.MustEnvelope(rc.Bands)
	summary := analysis.Summarize(res.Aircraft, env, rc.InitialDistanceNM, cfg.Sim.DayStartHour)
	rep.Run(res, summary)
	rep.Arrivals(arr.Ticks(), res.Ticks)

	id := uuid.NewString()

	if cfg.ExportPath != "" {
		run := &export.Run{
			ID:                 id,
			Seed:               cfg.Sim.Seed,
			ArrivalProbability: rc.ArrivalProbability,
			Result:             res,
			Summary:            summary,
		}
		if err := export.WriteFile(cfg.ExportPath, run); err != nil {
			return err
		}
		slog.Info("Exported run", "path", cfg.ExportPath, "aircraft", len(res.Aircraft))
	}

	if db != nil {
		record := &database.Run{
			ID:                 id,
			Experiment:         id,
			Seed:               cfg.Sim.Seed,
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
			Aircraft:           res.Aircraft,
		}
		if err := db.RunRepository().InsertBatch([]*database.Run{record}); err != nil {
			return err
		}
		slog.Info("Stored run", "id", id, "db_path", cfg.DBPath)
	}

	return nil
}

func runTrials(ctx context.Context, cfg *config.Config, db *database.DB, rep *report.Reporter) error {
	var repo database.RunWriter
	if db != nil {
		repo = db.RunRepository()
	}

	e, err := experiment.New(experiment.Config{
		Trials:           cfg.Trials.Count,
		Workers:          cfg.Trials.Workers,
		Lambdas:          cfg.Trials.Lambdas,
		Seed:             cfg.Sim.Seed,
		DayStartHour:     cfg.Sim.DayStartHour,
		StoreAircraft:    cfg.Trials.StoreAircraft,
		Progress:         cfg.Trials.Progress,
		ProgressInterval: time.Duration(cfg.Trials.ProgressInterval) * time.Second,
		BatchSize:        cfg.BatchSize,
		BatchTimeout:     time.Duration(cfg.BatchTimeout) * time.Second,
	}, cfg.RunAt, repo)
	if err != nil {
		return err
	}

	out, err := e.Run(ctx)
	if err != nil {
		return err
	}

	rep.Trials(out.Summaries)
	return nil
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"approach_sim/internal/database"
)

// RunCollector collects finished runs from trial workers and commits them to
// the database in batches. A run ID is stored at most once.
type RunCollector struct {
	repo          database.RunWriter
	runChan       <-chan *database.Run
	batchSize     int           // maximum number of runs in a batch before committing to database
	flushInterval time.Duration // time to flush batch even if not full
	stored        int
	duplicates    int
	failed        int
	seen          map[string]bool
	byExperiment  map[string]int // stored runs per experiment
}

// Default batch size is 100 runs and flush interval is 1 second
func NewRunCollector(repo database.RunWriter, runChan <-chan *database.Run) *RunCollector {
	return &RunCollector{
		repo:          repo,
		runChan:       runChan,
		batchSize:     100,
		flushInterval: 1 * time.Second,
		seen:          make(map[string]bool),
		byExperiment:  make(map[string]int),
	}
}

// NewRunCollectorWithConfig creates a run collector with custom batch settings
func NewRunCollectorWithConfig(repo database.RunWriter, runChan <-chan *database.Run, batchSize int, flushInterval time.Duration) *RunCollector {
	return &RunCollector{
		repo:          repo,
		runChan:       runChan,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		seen:          make(map[string]bool),
		byExperiment:  make(map[string]int),
	}
}

// Start collects runs and writes them to the database in batches.
// It blocks until the context is cancelled or the run channel is closed.
// Batches are flushed when they reach batchSize or flushInterval has passed
// since the last commit. Runs whose ID was already collected are dropped.
// A closed channel returns an error if any batch failed to commit.
func (c *RunCollector) Start(ctx context.Context) error {
	batch := make([]*database.Run, 0, c.batchSize)
	var lastFlushTime time.Time

	flushBatch := func() {
		if len(batch) > 0 {
			if err := c.repo.InsertBatch(batch); err != nil {
				c.failed += len(batch)
				slog.Error("Error inserting batch of runs", "batch_size", len(batch), "error", err)
			} else {
				lastFlushTime = time.Now()
				c.stored += len(batch)
				for _, run := range batch {
					c.byExperiment[run.Experiment]++
				}
				slog.Info("Inserted batch of runs",
					"batch_size", len(batch),
					"stored", c.stored,
				)
			}
			batch = batch[:0] // Reset slice but keep capacity
		}
	}

	// first run should not flush immediately
	lastFlushTime = time.Now()

	for {
		select {
		case <-ctx.Done():
			flushBatch()
			c.logSummary()
			return ctx.Err()

		case run, ok := <-c.runChan:
			if !ok {
				flushBatch()
				c.logSummary()
				if c.failed > 0 {
					return fmt.Errorf("failed to store %d runs", c.failed)
				}
				return nil
			}

			if run == nil {
				continue
			}
			if c.seen[run.ID] {
				c.duplicates++
				slog.Warn("Dropping duplicate run", "run_id", run.ID, "trial", run.Trial)
				continue
			}
			c.seen[run.ID] = true

			batch = append(batch, run)

			slog.Debug("Added run to batch",
				"run_id", run.ID,
				"arrival_probability", run.ArrivalProbability,
				"trial", run.Trial,
				"aircraft", len(run.Aircraft),
				"current_batch_size", len(batch),
				"max_batch_size", c.batchSize,
			)

			if len(batch) >= c.batchSize || time.Since(lastFlushTime) >= c.flushInterval {
				flushBatch()
			}
		}
	}
}

func (c *RunCollector) logSummary() {
	experiments := make([]string, 0, len(c.byExperiment))
	for id := range c.byExperiment {
		experiments = append(experiments, id)
	}
	sort.Strings(experiments)
	for _, id := range experiments {
		slog.Info("Stored experiment runs", "experiment", id, "runs", c.byExperiment[id])
	}

	slog.Info("Run collector finished",
		"stored", c.stored,
		"duplicates", c.duplicates,
		"failed", c.failed,
	)
}

// Stored is the number of runs committed so far. It is only meaningful
// after Start returns.
func (c *RunCollector) Stored() int {
	return c.stored
}

// Duplicates is the number of runs dropped because their ID was already
// collected
func (c *RunCollector) Duplicates() int {
	return c.duplicates
}

// StoredByExperiment is the number of committed runs per experiment ID
func (c *RunCollector) StoredByExperiment(experiment string) int {
	return c.byExperiment[experiment]
}

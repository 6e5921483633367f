package database

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"approach_sim/internal/models"
)

// Run is the stored record of one simulation run. Aircraft, when set, are
// written to the aircraft and samples tables in the same transaction.
type Run struct {
	ID                 string
	Experiment         string
	Trial              int
	Seed               int64
	Variant            string
	ArrivalProbability float64
	Ticks              int

	Created       int
	Landed        int
	Diverted      int
	InFlight      int
	Interruptions int
	Suspensions   int
	Rejoins       int

	// NaN when undefined, stored as NULL
	DiversionFraction  float64
	CongestionFraction float64
	MeanDelayMin       float64

	CreatedAt time.Time
	Aircraft  []*models.Aircraft
}

// RunWriter is the write side used by the record collector
type RunWriter interface {
	InsertBatch(runs []*Run) error
}

type RunRepository interface {
	RunWriter
	Count() (int, error)
	ByExperiment(experiment string) ([]*Run, error)
}

type runRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

// InsertBatch inserts one or more runs, with their aircraft and history, in
// a single transaction
func (r *runRepository) InsertBatch(runs []*Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO runs (
		id, experiment, trial, seed, variant, arrival_probability, ticks,
		created, landed, diverted, in_flight, interruptions, suspensions, rejoins,
		diversion_fraction, congestion_fraction, mean_delay_min, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	aircraft, err := prepareAircraft(tx)
	if err != nil {
		return err
	}
	defer aircraft.Close()

	for _, run := range runs {
		if _, err := stmt.Exec(
			run.ID, run.Experiment, run.Trial, run.Seed, run.Variant,
			run.ArrivalProbability, run.Ticks,
			run.Created, run.Landed, run.Diverted, run.InFlight,
			run.Interruptions, run.Suspensions, run.Rejoins,
			nullable(run.DiversionFraction), nullable(run.CongestionFraction),
			nullable(run.MeanDelayMin), run.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}

		if err := aircraft.insert(run.ID, run.Aircraft); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *runRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// ByExperiment returns the runs of an experiment ordered by arrival
// probability then trial. Aircraft are not loaded.
func (r *runRepository) ByExperiment(experiment string) ([]*Run, error) {
	rows, err := r.db.Query(`SELECT
		id, experiment, trial, seed, variant, arrival_probability, ticks,
		created, landed, diverted, in_flight, interruptions, suspensions, rejoins,
		diversion_fraction, congestion_fraction, mean_delay_min, created_at
	FROM runs WHERE experiment = ? ORDER BY arrival_probability, trial`, experiment)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var diversion, congestion, delay sql.NullFloat64
		if err := rows.Scan(
			&run.ID, &run.Experiment, &run.Trial, &run.Seed, &run.Variant,
			&run.ArrivalProbability, &run.Ticks,
			&run.Created, &run.Landed, &run.Diverted, &run.InFlight,
			&run.Interruptions, &run.Suspensions, &run.Rejoins,
			&diversion, &congestion, &delay, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.DiversionFraction = orNaN(diversion)
		run.CongestionFraction = orNaN(congestion)
		run.MeanDelayMin = orNaN(delay)
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

func nullable(x float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: x, Valid: !math.IsNaN(x) && !math.IsInf(x, 0)}
}

func orNaN(x sql.NullFloat64) float64 {
	if !x.Valid {
		return math.NaN()
	}
	return x.Float64
}

package database

import (
	"database/sql"
	"fmt"

	"approach_sim/internal/models"
)

type AircraftRepository interface {
	ByRun(runID string) ([]*models.Aircraft, error)
	CountByStatus(runID string) (map[models.Status]int, error)
}

type aircraftRepository struct {
	db *sql.DB
}

func NewAircraftRepository(db *sql.DB) AircraftRepository {
	return &aircraftRepository{db: db}
}

// aircraftWriter holds the prepared statements used inside a run insert
type aircraftWriter struct {
	aircraft *sql.Stmt
	samples  *sql.Stmt
}

func prepareAircraft(tx *sql.Tx) (*aircraftWriter, error) {
	aircraft, err := tx.Prepare(`INSERT OR REPLACE INTO aircraft (
		run_id, aircraft_id, variant, appear_tick, status, terminal_tick,
		distance_nm, speed_kt, suspensions, interruptions, wait_ticks,
		fuel_remaining_kg, fuel_burn_kg_per_min
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare aircraft statement: %w", err)
	}

	samples, err := tx.Prepare(`INSERT OR REPLACE INTO samples (
		run_id, aircraft_id, seq, tick, distance_nm
	) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		aircraft.Close()
		return nil, fmt.Errorf("failed to prepare samples statement: %w", err)
	}

	return &aircraftWriter{aircraft: aircraft, samples: samples}, nil
}

func (w *aircraftWriter) insert(runID string, aircraft []*models.Aircraft) error {
	for _, ac := range aircraft {
		var remaining, burn sql.NullFloat64
		if ac.Fuel != nil {
			remaining = nullable(ac.Fuel.RemainingKg)
			burn = nullable(ac.Fuel.BurnKgPerMin)
		}

		if _, err := w.aircraft.Exec(
			runID, ac.ID, int(ac.Variant), ac.AppearTick, int(ac.Status), ac.TerminalTick,
			ac.DistanceNM, ac.SpeedKt, ac.Suspensions, ac.Interruptions, ac.WaitTicks,
			remaining, burn,
		); err != nil {
			return fmt.Errorf("failed to insert aircraft %d: %w", ac.ID, err)
		}

		for seq, s := range ac.History {
			if _, err := w.samples.Exec(runID, ac.ID, seq, s.Tick, s.DistanceNM); err != nil {
				return fmt.Errorf("failed to insert sample %d of aircraft %d: %w", seq, ac.ID, err)
			}
		}
	}
	return nil
}

func (w *aircraftWriter) Close() error {
	w.samples.Close()
	return w.aircraft.Close()
}

// ByRun loads the aircraft of a run with their history, in creation order
func (r *aircraftRepository) ByRun(runID string) ([]*models.Aircraft, error) {
	rows, err := r.db.Query(`SELECT
		aircraft_id, variant, appear_tick, status, terminal_tick,
		distance_nm, speed_kt, suspensions, interruptions, wait_ticks,
		fuel_remaining_kg, fuel_burn_kg_per_min
	FROM aircraft WHERE run_id = ? ORDER BY aircraft_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft: %w", err)
	}
	defer rows.Close()

	var aircraft []*models.Aircraft
	byID := make(map[int]*models.Aircraft)
	for rows.Next() {
		var ac models.Aircraft
		var variant, status int
		var remaining, burn sql.NullFloat64
		if err := rows.Scan(
			&ac.ID, &variant, &ac.AppearTick, &status, &ac.TerminalTick,
			&ac.DistanceNM, &ac.SpeedKt, &ac.Suspensions, &ac.Interruptions, &ac.WaitTicks,
			&remaining, &burn,
		); err != nil {
			return nil, fmt.Errorf("failed to scan aircraft: %w", err)
		}
		ac.Variant = models.Variant(variant)
		ac.Status = models.Status(status)
		if remaining.Valid {
			ac.Fuel = &models.Fuel{RemainingKg: remaining.Float64, BurnKgPerMin: burn.Float64}
		}
		aircraft = append(aircraft, &ac)
		byID[ac.ID] = &ac
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aircraft: %w", err)
	}

	if err := r.loadHistory(runID, byID); err != nil {
		return nil, err
	}
	return aircraft, nil
}

func (r *aircraftRepository) loadHistory(runID string, byID map[int]*models.Aircraft) error {
	rows, err := r.db.Query(`SELECT aircraft_id, tick, distance_nm
	FROM samples WHERE run_id = ? ORDER BY aircraft_id, seq`, runID)
	if err != nil {
		return fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var s models.Sample
		if err := rows.Scan(&id, &s.Tick, &s.DistanceNM); err != nil {
			return fmt.Errorf("failed to scan sample: %w", err)
		}
		if ac, ok := byID[id]; ok {
			ac.History = append(ac.History, s)
		}
	}
	return rows.Err()
}

func (r *aircraftRepository) CountByStatus(runID string) (map[models.Status]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM aircraft WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count aircraft: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status, n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

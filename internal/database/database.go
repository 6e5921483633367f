package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB owns the sqlite connection that stores simulation runs
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite tunes sqlite for large batched inserts from trial workers
func optimizeSQLite(db *sql.DB) error {
	// WAL lets report queries read while the collector writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// 64MB page cache
	if _, err := db.Exec("PRAGMA cache_size=-64000"); err != nil {
		return fmt.Errorf("failed to set cache size: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA temp_store=MEMORY"); err != nil {
		return fmt.Errorf("failed to set temp_store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// RunRepository returns the repository for run records
func (d *DB) RunRepository() RunRepository {
	return NewRunRepository(d.db)
}

// AircraftRepository returns the repository for per-aircraft history
func (d *DB) AircraftRepository() AircraftRepository {
	return NewAircraftRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	schemas := []struct {
		table string
		ddl   string
	}{
		{"runs", `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			experiment TEXT NOT NULL,
			trial INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			variant TEXT NOT NULL,
			arrival_probability REAL NOT NULL,
			ticks INTEGER NOT NULL,
			created INTEGER NOT NULL,
			landed INTEGER NOT NULL,
			diverted INTEGER NOT NULL,
			in_flight INTEGER NOT NULL,
			interruptions INTEGER NOT NULL,
			suspensions INTEGER NOT NULL,
			rejoins INTEGER NOT NULL,
			diversion_fraction REAL,
			congestion_fraction REAL,
			mean_delay_min REAL,
			created_at TIMESTAMP NOT NULL
		);`},
		{"aircraft", `CREATE TABLE IF NOT EXISTS aircraft (
			run_id TEXT NOT NULL REFERENCES runs(id),
			aircraft_id INTEGER NOT NULL,
			variant INTEGER NOT NULL,
			appear_tick INTEGER NOT NULL,
			status INTEGER NOT NULL,
			terminal_tick INTEGER NOT NULL,
			distance_nm REAL NOT NULL,
			speed_kt REAL NOT NULL,
			suspensions INTEGER NOT NULL,
			interruptions INTEGER NOT NULL,
			wait_ticks INTEGER NOT NULL,
			fuel_remaining_kg REAL,
			fuel_burn_kg_per_min REAL,
			PRIMARY KEY (run_id, aircraft_id)
		);`},
		{"samples", `CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL,
			aircraft_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			distance_nm REAL NOT NULL,
			PRIMARY KEY (run_id, aircraft_id, seq)
		);`},
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_probability ON runs(arrival_probability)`,
		`CREATE INDEX IF NOT EXISTS idx_aircraft_status ON aircraft(run_id, status)`,
	}

	for _, s := range schemas {
		if _, err := d.db.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.table, err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

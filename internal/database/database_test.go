package database

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"approach_sim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	db, err := New(filepath.Join(t.TempDir(), "test_runs.db"))
	require.NoError(t, err)
	require.NotNil(t, db)

	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	if db != nil {
		err := db.Close()
		assert.NoError(t, err)
	}
}

func testRun(id string, trial int, p float64) *Run {
	return &Run{
		ID:                 id,
		Experiment:         "exp-1",
		Trial:              trial,
		Seed:               42,
		Variant:            "base",
		ArrivalProbability: p,
		Ticks:              1080,
		Created:            2,
		Landed:             1,
		Diverted:           1,
		DiversionFraction:  0.5,
		CongestionFraction: math.NaN(),
		MeanDelayMin:       3.25,
		CreatedAt:          time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
		Aircraft: []*models.Aircraft{
			{
				ID:           1,
				Status:       models.StatusLanded,
				TerminalTick: 30,
				SpeedKt:      150,
				History:      []models.Sample{{Tick: 0, DistanceNM: 100}, {Tick: 1, DistanceNM: 95}},
			},
			{
				ID:           2,
				Variant:      models.VariantFuelAware,
				AppearTick:   3,
				Status:       models.StatusDiverted,
				TerminalTick: 40,
				DistanceNM:   14,
				Suspensions:  1,
				WaitTicks:    6,
				Fuel:         &models.Fuel{RemainingKg: 9000, BurnKgPerMin: 45},
				History:      []models.Sample{{Tick: 3, DistanceNM: 100}},
			},
		},
	}
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	assert.NotNil(t, db)
}

func TestInsertRunsBatch(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runs := db.RunRepository()
	err := runs.InsertBatch([]*Run{testRun("b", 1, 0.2), testRun("a", 0, 0.1)})
	require.NoError(t, err)

	n, err := runs.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := runs.ByExperiment("exp-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 0.5, got[0].DiversionFraction)
	assert.True(t, math.IsNaN(got[0].CongestionFraction))
	assert.Equal(t, 3.25, got[0].MeanDelayMin)
	assert.True(t, got[0].CreatedAt.Equal(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)))
	assert.Nil(t, got[0].Aircraft)
}

func TestInsertRunsBatch_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	// Empty batch should not error
	err := db.RunRepository().InsertBatch([]*Run{})
	assert.NoError(t, err)
}

func TestInsertRunsBatch_Duplicates(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runs := db.RunRepository()
	run := testRun("a", 0, 0.1)

	// Same run twice replaces rather than failing
	require.NoError(t, runs.InsertBatch([]*Run{run, run}))

	n, err := runs.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	aircraft, err := db.AircraftRepository().ByRun("a")
	require.NoError(t, err)
	assert.Len(t, aircraft, 2)
}

func TestAircraftByRun(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	run := testRun("a", 0, 0.1)
	require.NoError(t, db.RunRepository().InsertBatch([]*Run{run}))

	repo := db.AircraftRepository()
	got, err := repo.ByRun("a")
	require.NoError(t, err)
	assert.Equal(t, run.Aircraft, got)

	counts, err := repo.CountByStatus("a")
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{models.StatusLanded: 1, models.StatusDiverted: 1}, counts)

	none, err := repo.ByRun("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

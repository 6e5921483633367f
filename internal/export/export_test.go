package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"approach_sim/internal/analysis"
	"approach_sim/internal/models"
	"approach_sim/internal/rand"
	"approach_sim/internal/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(t *testing.T) *Run {
	t.Helper()

	cfg := sim.DefaultConfig()
	cfg.TotalTicks = 240
	cfg.ArrivalProbability = 0.2

	d, err := sim.New(cfg, rand.New(7), nil)
	require.NoError(t, err)
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	env := models.MustEnvelope(cfg.Bands)
	return &Run{
		ID:                 "run-7",
		Seed:               7,
		ArrivalProbability: cfg.ArrivalProbability,
		Result:             res,
		Summary:            analysis.Summarize(res.Aircraft, env, cfg.InitialDistanceNM, models.DefaultDayStartHour),
	}
}

func TestWriteRead(t *testing.T) {
	run := testRun(t)
	require.NotEmpty(t, run.Result.Aircraft)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.Result, got.Result)
	assert.Equal(t, run.Summary.Landed, got.Summary.Landed)
	assert.Equal(t, run.Summary.LandingsByHour, got.Summary.LandingsByHour)
}

func TestWriteReadFile(t *testing.T) {
	run := testRun(t)
	path := filepath.Join(t.TempDir(), "run.msgpack.zst")

	require.NoError(t, WriteFile(path, run))
	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.Len(t, got.Result.Aircraft, len(run.Result.Aircraft))
}

func TestReadGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a run")))
	assert.Error(t, err)
}

package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"approach_sim/internal/models"
	"approach_sim/internal/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("APPROACH_SIM_CONFIG_PATH", path)
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, "mode: single\n")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "single", cfg.Mode)
	assert.Equal(t, 1080, cfg.Sim.TotalTicks)
	assert.Equal(t, models.DefaultBands(), cfg.Sim.Bands)
	assert.Equal(t, []float64{0.02, 0.1, 0.2, 0.5, 1}, cfg.Trials.Lambdas)
	assert.Equal(t, "info", cfg.Log.Level)

	rc, err := cfg.Run()
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultConfig(), rc)
}

func TestLoadFile(t *testing.T) {
	writeConfig(t, `
mode: trials
sim:
  arrival_probability: 0.3
  total_ticks: 600
  bands:
    - {lower_nm: 50, upper_nm: 0, min_kt: 250, max_kt: 400}
    - {lower_nm: 0, upper_nm: 50, min_kt: 120, max_kt: 250}
  initial_distance_nm: 80
  corridor_outer_nm: 80
scenario:
  variant: fuel_aware
  diversion: fuel
trials:
  count: 5
  lambdas: [0.1, 0.4]
log:
  level: debug
  format: json
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trials", cfg.Mode)
	require.Len(t, cfg.Sim.Bands, 2)
	assert.True(t, math.IsInf(cfg.Sim.Bands[0].UpperNM, 1))
	assert.Equal(t, []float64{0.1, 0.4}, cfg.Trials.Lambdas)

	rc, err := cfg.RunAt(0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, rc.ArrivalProbability)
	assert.Equal(t, 600, rc.TotalTicks)
	assert.Equal(t, models.VariantFuelAware, rc.Variant)
	assert.Equal(t, sim.DiversionFuel, rc.Diversion)
}

func TestLoadEnvOverride(t *testing.T) {
	writeConfig(t, "mode: single\n")
	t.Setenv("APPROACH_SIM_SIM_TOTAL_TICKS", "240")
	t.Setenv("APPROACH_SIM_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 240, cfg.Sim.TotalTicks)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "mode", body: "mode: sometimes\n"},
		{name: "log level", body: "log:\n  level: loud\n"},
		{name: "log format", body: "log:\n  format: xml\n"},
		{name: "batch size", body: "batch_size: 0\n"},
		{name: "variant", body: "scenario:\n  variant: glider\n"},
		{name: "wait without closure", body: "scenario:\n  diversion: wait\n"},
		{name: "fuel without variant", body: "scenario:\n  diversion: fuel\n"},
		{name: "gapped bands", body: "sim:\n  bands:\n    - {lower_nm: 60, upper_nm: 0, min_kt: 250, max_kt: 300}\n    - {lower_nm: 0, upper_nm: 50, min_kt: 120, max_kt: 250}\n"},
		{name: "no lambdas", body: "mode: trials\ntrials:\n  lambdas: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.body)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestFloats(t *testing.T) {
	assert.Equal(t, []float64{0.1, 0.25}, floats("0.1, 0.25"))
	assert.Equal(t, []float64{1, 0.5}, floats([]interface{}{1, 0.5}))
	assert.Nil(t, floats(nil))
}

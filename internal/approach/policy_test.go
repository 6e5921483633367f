package approach

import (
	"testing"

	"approach_sim/internal/models"
	"approach_sim/internal/rand"

	"github.com/stretchr/testify/assert"
)

func TestDistanceBound(t *testing.T) {
	diverts := DistanceBound(100)

	assert.False(t, diverts(approaching(1, 100, 300)))
	assert.True(t, diverts(approaching(2, 100.1, 300)))

	done := approaching(3, 120, 300)
	done.Status = models.StatusDiverted
	assert.False(t, diverts(done))
}

func TestWaitBound(t *testing.T) {
	diverts := WaitBound(60, 30, 10)

	tests := []struct {
		name     string
		distance float64
		wait     int
		expected bool
	}{
		{name: "short wait", distance: 40, wait: 30, expected: false},
		{name: "at ceiling", distance: 40, wait: 60, expected: false},
		{name: "past ceiling", distance: 40, wait: 61, expected: true},
		{name: "close in short wait", distance: 9, wait: 30, expected: false},
		{name: "close in long wait", distance: 9, wait: 31, expected: true},
		{name: "at close in bound", distance: 10, wait: 45, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := approaching(1, tt.distance, 200)
			a.WaitTicks = tt.wait
			assert.Equal(t, tt.expected, diverts(a))
		})
	}
}

func TestFuelPlan(t *testing.T) {
	plan := DefaultFuelPlan()

	assert.NoError(t, plan.Validate())
	assert.InDelta(t, 45.0, plan.BurnKgPerMin(), 1e-9)
	// 16 minutes to the alternate
	assert.InDelta(t, 720.0, plan.AlternateCostKg(), 1e-9)

	fuel := plan.Fill(&rand.Fixed{Values: []float64{0.5}})
	assert.InDelta(t, 0.7*20800, fuel.RemainingKg, 1e-6)
	assert.InDelta(t, 45.0, fuel.BurnKgPerMin, 1e-9)

	bad := plan
	bad.MinFraction = 0.95
	assert.Error(t, bad.Validate())
}

func TestFuelBound(t *testing.T) {
	diverts := FuelBound(DefaultFuelPlan())

	a := approaching(1, 12, 200)
	assert.False(t, diverts(a), "aircraft without fuel tracking never diverts on fuel")

	a.Fuel = &models.Fuel{RemainingKg: 765, BurnKgPerMin: 45}
	assert.False(t, diverts(a))

	a.Fuel.RemainingKg = 764
	assert.True(t, diverts(a))
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.BufferMin = 3
	assert.Error(t, p.Validate())

	assert.NoError(t, DefaultHolding().Validate())
	assert.Error(t, Holding{InnerNM: 15, OuterNM: 10, SpeedKt: 230}.Validate())
}

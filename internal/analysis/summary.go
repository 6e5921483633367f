// Package analysis reduces simulation runs to the figures reported for them:
// per-run delay and congestion, and confidence estimates across trials.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"approach_sim/internal/kinematics"
	"approach_sim/internal/models"
)

// CongestionRatio flags a segment flown below this share of the band maximum
const CongestionRatio = 0.95

// Summary describes one run
type Summary struct {
	Created       int `msgpack:"created"`
	Landed        int `msgpack:"landed"`
	Diverted      int `msgpack:"diverted"`
	InFlight      int `msgpack:"in_flight"`
	Interruptions int `msgpack:"interruptions"`
	Congested     int `msgpack:"congested"`

	DiversionFraction  float64 `msgpack:"diversion_fraction"`
	CongestionFraction float64 `msgpack:"congestion_fraction"`

	// minutes from appearance to touchdown, landed aircraft only
	MeanApproachMin float64 `msgpack:"mean_approach_min"`
	FreeFlowMin     float64 `msgpack:"free_flow_min"`
	MeanDelayMin    float64 `msgpack:"mean_delay_min"`
	StdDelayMin     float64 `msgpack:"std_delay_min"`

	LandingsByHour map[int]int `msgpack:"landings_by_hour"`
}

// Summarize reduces the aircraft of one run. Fractions and means are NaN
// when there is nothing to average.
func Summarize(aircraft []*models.Aircraft, env *models.Envelope, initialNM float64, dayStartHour int) Summary {
	s := Summary{
		Created:        len(aircraft),
		FreeFlowMin:    env.FreeFlowMinutes(initialNM),
		LandingsByHour: make(map[int]int),
	}

	var approach, delays []float64
	for _, a := range aircraft {
		s.Interruptions += a.Interruptions

		switch a.Status {
		case models.StatusDiverted:
			s.Diverted++
			continue
		case models.StatusLanded:
		default:
			s.InFlight++
			continue
		}

		s.Landed++
		minutes := float64(a.TerminalTick - a.AppearTick)
		approach = append(approach, minutes)
		delays = append(delays, minutes-s.FreeFlowMin)
		s.LandingsByHour[dayStartHour+a.TerminalTick/int(kinematics.MinutesPerHour)]++

		if Congested(a, env) {
			s.Congested++
		}
	}

	s.DiversionFraction = fraction(s.Diverted, s.Created)
	s.CongestionFraction = fraction(s.Congested, s.Created)
	s.MeanApproachMin = mean(approach)
	s.MeanDelayMin = mean(delays)
	s.StdDelayMin = math.NaN()
	if len(delays) > 0 {
		_, variance := stat.PopMeanVariance(delays, nil)
		s.StdDelayMin = math.Sqrt(variance)
	}

	return s
}

// Congested reports whether the aircraft flew any part of its history
// slower than CongestionRatio of the band maximum where that part began
func Congested(a *models.Aircraft, env *models.Envelope) bool {
	for i := 1; i < len(a.History); i++ {
		from, to := a.History[i-1], a.History[i]
		if to.Tick <= from.Tick {
			continue
		}
		speed := math.Abs(from.DistanceNM-to.DistanceNM) * kinematics.MinutesPerHour / float64(to.Tick-from.Tick)
		_, maxKt := env.Limits(from.DistanceNM)
		if speed < maxKt*CongestionRatio {
			return true
		}
	}
	return false
}

// Hours returns the hours of LandingsByHour in order
func (s Summary) Hours() []int {
	hours := make([]int, 0, len(s.LandingsByHour))
	for h := range s.LandingsByHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

func fraction(n, total int) float64 {
	if total == 0 {
		return math.NaN()
	}
	return float64(n) / float64(total)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimate is a sample mean with its spread and a 95% confidence interval
type Estimate struct {
	N      int     `msgpack:"n"`
	Mean   float64 `msgpack:"mean"`
	StdDev float64 `msgpack:"std_dev"`
	StdErr float64 `msgpack:"std_err"`
	CILow  float64 `msgpack:"ci_low"`
	CIHigh float64 `msgpack:"ci_high"`
}

// EstimateOf summarizes xs, skipping NaN values. The spread needs at least
// two samples and is NaN otherwise.
func EstimateOf(xs []float64) Estimate {
	clean := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			clean = append(clean, x)
		}
	}

	nan := math.NaN()
	e := Estimate{N: len(clean), Mean: nan, StdDev: nan, StdErr: nan, CILow: nan, CIHigh: nan}
	if e.N == 0 {
		return e
	}
	e.Mean = stat.Mean(clean, nil)
	if e.N < 2 {
		return e
	}

	e.StdDev = stat.StdDev(clean, nil)
	e.StdErr = stat.StdErr(e.StdDev, float64(e.N))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(e.N - 1)}.Quantile(0.975)
	e.CILow = e.Mean - t*e.StdErr
	e.CIHigh = e.Mean + t*e.StdErr
	return e
}

// TrialSummary aggregates repeated runs at one arrival probability
type TrialSummary struct {
	ArrivalProbability float64 `msgpack:"arrival_probability"`
	Trials             int     `msgpack:"trials"`

	Created    Estimate `msgpack:"created"`
	Diversion  Estimate `msgpack:"diversion"`
	Congestion Estimate `msgpack:"congestion"`
	Delay      Estimate `msgpack:"delay"`
}

// SummarizeTrials aggregates the summaries of independent runs
func SummarizeTrials(arrivalProbability float64, runs []Summary) TrialSummary {
	created := make([]float64, len(runs))
	diversion := make([]float64, len(runs))
	congestion := make([]float64, len(runs))
	delay := make([]float64, len(runs))

	for i, r := range runs {
		created[i] = float64(r.Created)
		diversion[i] = r.DiversionFraction
		congestion[i] = r.CongestionFraction
		delay[i] = r.MeanDelayMin
	}

	return TrialSummary{
		ArrivalProbability: arrivalProbability,
		Trials:             len(runs),
		Created:            EstimateOf(created),
		Diversion:          EstimateOf(diversion),
		Congestion:         EstimateOf(congestion),
		Delay:              EstimateOf(delay),
	}
}

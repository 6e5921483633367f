// Package report prints run and trial summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/labstack/gommon/color"

	"approach_sim/internal/analysis"
	"approach_sim/internal/arrivals"
	"approach_sim/internal/sim"
)

// Diversion fractions above this are highlighted as failures
const alarmFraction = 0.1

// Reporter writes tables to an output. Color is dropped automatically when
// the output is not a terminal.
type Reporter struct {
	c *color.Color
}

func New(w io.Writer, noColor bool) *Reporter {
	c := color.New()
	c.SetOutput(w)
	if noColor {
		c.Disable()
	}
	return &Reporter{c: c}
}

// Run prints the summary of a single run
func (r *Reporter) Run(res *sim.Result, s analysis.Summary) {
	c := r.c
	c.Println(c.Bold(c.Cyan("Run summary")))
	c.Printf("  %-22s %d\n", "ticks", res.Ticks)
	c.Printf("  %-22s %d\n", "created", s.Created)
	c.Printf("  %-22s %s\n", "landed", c.Green(s.Landed))
	c.Printf("  %-22s %s\n", "diverted", r.fraction(s.Diverted, s.DiversionFraction))
	c.Printf("  %-22s %d\n", "in flight", s.InFlight)
	c.Printf("  %-22s %d\n", "interruptions", s.Interruptions)
	c.Printf("  %-22s %d\n", "suspensions", res.Counters.Suspensions)
	c.Printf("  %-22s %d\n", "rejoins", res.Counters.Rejoins)
	c.Printf("  %-22s %s\n", "congested", ratio(s.Congested, s.CongestionFraction))
	c.Printf("  %-22s %s\n", "mean approach (min)", number(s.MeanApproachMin))
	c.Printf("  %-22s %s\n", "free flow (min)", number(s.FreeFlowMin))
	c.Printf("  %-22s %s ± %s\n", "mean delay (min)", number(s.MeanDelayMin), number(s.StdDelayMin))

	if cl := res.Closure; cl != nil {
		c.Println(c.Bold(c.Cyan("Runway closure")))
		c.Printf("  %-22s %d-%d (%s)\n", "window", cl.StartTick, cl.EndTick, cl.Mode)
		c.Printf("  %-22s %s\n", "affected", c.Yellow(cl.Stats.Affected))
		c.Printf("  %-22s %d\n", "wait (min)", cl.Stats.WaitMinutes)
		c.Printf("  %-22s %d\n", "max queue", cl.Stats.MaxQueue)
	}

	if hours := s.Hours(); len(hours) > 0 {
		c.Println(c.Bold(c.Cyan("Landings by hour")))
		for _, h := range hours {
			n := s.LandingsByHour[h]
			c.Printf("  %02d:00  %3d %s\n", h%24, n, strings.Repeat("#", n))
		}
	}
}

// Arrivals prints the hourly arrival rate of a run and how often an hour
// saw exactly arrivals.HourlyTarget aircraft
func (r *Reporter) Arrivals(ticks []int, totalTicks int) {
	c := r.c
	rate := math.NaN()
	if hours := totalTicks / arrivals.HourTicks; hours > 0 {
		rate = float64(len(ticks)) / float64(totalTicks) * arrivals.HourTicks
	}
	p := arrivals.IntervalCountProbability(ticks, totalTicks, arrivals.HourTicks, arrivals.HourlyTarget)

	c.Println(c.Bold(c.Cyan("Arrivals")))
	c.Printf("  %-22s %s\n", "per hour", number(rate))
	c.Printf("  %-22s %s\n", fmt.Sprintf("P(%d in an hour)", arrivals.HourlyTarget), probability(p))
}

// Trials prints one row per arrival probability
func (r *Reporter) Trials(summaries []analysis.TrialSummary) {
	c := r.c
	c.Println(c.Bold(c.Cyan("Trial summary")))
	c.Printf("  %-8s %-6s %-10s %-28s %-28s %-10s\n",
		"p", "trials", "created", "diversion (95% CI)", "congestion (95% CI)", "delay")
	for _, s := range summaries {
		diversion := fmt.Sprintf("%-28s", interval(s.Diversion))
		c.Printf("  %-8.3f %-6d %-10s %s %-28s %-10s\n",
			s.ArrivalProbability,
			s.Trials,
			number(s.Created.Mean),
			r.severity(s.Diversion.Mean, diversion),
			interval(s.Congestion),
			number(s.Delay.Mean),
		)
	}
}

func (r *Reporter) fraction(n int, f float64) string {
	return r.severity(f, ratio(n, f))
}

func (r *Reporter) severity(f float64, text string) string {
	switch {
	case math.IsNaN(f) || f == 0:
		return r.c.Green(text)
	case f > alarmFraction:
		return r.c.Red(text)
	default:
		return r.c.Yellow(text)
	}
}

func ratio(n int, f float64) string {
	if math.IsNaN(f) {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d (%.1f%%)", n, 100*f)
}

func number(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", x)
}

func probability(p float64) string {
	if math.IsNaN(p) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", p)
}

func interval(e analysis.Estimate) string {
	if math.IsNaN(e.CILow) {
		return number(e.Mean)
	}
	return fmt.Sprintf("%.4f [%.4f, %.4f]", e.Mean, e.CILow, e.CIHigh)
}

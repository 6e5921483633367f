// Package arrivals generates the stream of aircraft entering the corridor
package arrivals

import (
	"math"
	"sort"

	"approach_sim/internal/rand"
)

// Bernoulli yields one arrival per tick with probability P
type Bernoulli struct {
	P   float64
	Src rand.Source
}

func (b *Bernoulli) Arrivals(int) int {
	if rand.Bernoulli(b.Src, b.P) {
		return 1
	}
	return 0
}

// Schedule replays arrivals at fixed ticks. A tick may carry several
// arrivals.
type Schedule struct {
	counts map[int]int
}

// NewSchedule builds a schedule from arrival ticks; repeated ticks add up
func NewSchedule(ticks ...int) *Schedule {
	s := &Schedule{counts: make(map[int]int, len(ticks))}
	for _, t := range ticks {
		s.Add(t, 1)
	}
	return s
}

// Add schedules n more arrivals at tick
func (s *Schedule) Add(tick, n int) {
	if n <= 0 {
		return
	}
	if s.counts == nil {
		s.counts = make(map[int]int)
	}
	s.counts[tick] += n
}

func (s *Schedule) Arrivals(tick int) int {
	return s.counts[tick]
}

// Ticks returns every arrival tick in ascending order, repeated per arrival
func (s *Schedule) Ticks() []int {
	var out []int
	for t, n := range s.counts {
		for i := 0; i < n; i++ {
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

// Len is the total number of scheduled arrivals
func (s *Schedule) Len() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Recorded is an arrival source that can list the ticks it produced
type Recorded interface {
	Arrivals(tick int) int
	Ticks() []int
}

// Arrivals per hour that the run report tracks
const (
	HourTicks    = 60
	HourlyTarget = 5
)

// IntervalCountProbability is the fraction of whole intervals of the given
// length, over totalTicks, that contain exactly target arrivals. It is NaN
// when no whole interval fits.
func IntervalCountProbability(ticks []int, totalTicks, interval, target int) float64 {
	if interval <= 0 || totalTicks < interval {
		return math.NaN()
	}
	intervals := totalTicks / interval
	counts := make([]int, intervals)
	for _, t := range ticks {
		if t < 0 {
			continue
		}
		if i := t / interval; i < intervals {
			counts[i]++
		}
	}

	hits := 0
	for _, c := range counts {
		if c == target {
			hits++
		}
	}
	return float64(hits) / float64(intervals)
}

// Record is a Bernoulli process that also remembers the tick of every
// arrival it produced
type Record struct {
	Bernoulli
	ticks []int
}

func (r *Record) Arrivals(tick int) int {
	n := r.Bernoulli.Arrivals(tick)
	if n > 0 {
		r.ticks = append(r.ticks, tick)
	}
	return n
}

// Ticks returns the arrival ticks seen so far in draw order
func (r *Record) Ticks() []int {
	return r.ticks
}

package sim

import (
	"io"

	"github.com/brunoga/deep"
	"github.com/goforj/godump"

	"approach_sim/internal/models"
)

// Snapshot is the corridor state after a tick. Its aircraft are copies, so
// observers may keep or mutate them freely.
type Snapshot struct {
	Tick      int
	Queue     []*models.Aircraft
	Suspended []*models.Aircraft
	Counters  Counters
}

// Observer receives a snapshot after every tick. It runs on the simulation
// goroutine and cannot influence the outcome.
type Observer func(Snapshot)

// Snapshot copies the current corridor state
func (d *Driver) Snapshot() Snapshot {
	return Snapshot{
		Tick:      d.tick,
		Queue:     deep.MustCopy(d.queue),
		Suspended: deep.MustCopy(d.suspended),
		Counters:  d.counters,
	}
}

// InFlight is the number of aircraft still in the corridor
func (s Snapshot) InFlight() int {
	return len(s.Queue) + len(s.Suspended)
}

// DumpObserver writes every nth snapshot to w in a readable form
func DumpObserver(w io.Writer, every int) Observer {
	if every <= 0 {
		every = 1
	}
	return func(s Snapshot) {
		if s.Tick%every == 0 {
			godump.Fdump(w, s)
		}
	}
}

// Chain calls each non-nil observer in order
func Chain(observers ...Observer) Observer {
	return func(s Snapshot) {
		for _, fn := range observers {
			if fn != nil {
				fn(s)
			}
		}
	}
}

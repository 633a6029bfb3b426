package relay

import "time"

// State is the relay's lifecycle phase.
type State string

// Relay states.
const (
	StateStarting  State = "starting"
	StateBuffering State = "buffering"
	StateFlowing   State = "flowing"
	StateExited    State = "exited"
)

// Snapshot is a point-in-time view of a running relay.
type Snapshot struct {
	State State

	LinesIn   int
	LinesOut  int
	LinesErr  int
	Forwarded int
	Filtered  int

	Pending      int
	InputQueued  int
	InputWritten int
	InputDropped int

	ExitCode int

	StartedAt      time.Time
	ReadyAt        time.Time
	EndedAt        time.Time
	LastActivityAt time.Time
}

// Snapshot returns the current view. It must be called from the goroutine
// running Run, or after Run has returned.
func (r *Relay) Snapshot() Snapshot {
	s := r.snap
	c := r.gate.Counts()
	s.Pending = c.Pending
	s.InputQueued = c.Queued
	s.InputWritten = c.Written
	s.InputDropped = c.Dropped
	if s.State != StateExited {
		s.ExitCode = -1
	}
	return s
}

func (r *Relay) setState(s State) {
	r.snap.State = s
	r.observe()
}

func (r *Relay) observe() {
	if r.opts.Observer != nil {
		r.opts.Observer.Observe(r.Snapshot())
	}
}

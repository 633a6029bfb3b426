package status

import (
	"context"
	"sync"
	"time"

	"github.com/aki/mcprelay/internal/logger"
	"github.com/aki/mcprelay/internal/relay"
)

// Reporter writes relay snapshots to a status file. It implements
// relay.Observer. Writes happen on a background goroutine so a slow or
// contended status file never holds up the relay; when snapshots arrive
// faster than they can be written, only the latest one is kept.
type Reporter struct {
	store *Store
	path  string
	base  Status
	log   logger.Logger

	mu     sync.Mutex
	next   *Status
	closed bool
	wake   chan struct{}
	done   chan struct{}
	warned bool
}

// NewReporter creates a reporter for one run. base carries the fields the
// relay does not know about: run ID, PID and command. Call Close when the
// run is over.
func NewReporter(store *Store, path string, base Status, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.Nop()
	}
	r := &Reporter{
		store: store,
		path:  path,
		base:  base,
		log:   log,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// Observe implements relay.Observer. It never blocks on the file.
func (r *Reporter) Observe(s relay.Snapshot) {
	st := r.base
	st.State = string(s.State)
	st.Pending = s.Pending
	st.LinesIn = s.LinesIn
	st.LinesOut = s.LinesOut
	st.LinesErr = s.LinesErr
	st.Forwarded = s.Forwarded
	st.Filtered = s.Filtered
	st.InputQueued = s.InputQueued
	st.InputWritten = s.InputWritten
	st.InputDropped = s.InputDropped
	st.ExitCode = s.ExitCode
	st.StartedAt = s.StartedAt
	st.ReadyAt = s.ReadyAt
	st.EndedAt = s.EndedAt
	st.LastActivityAt = s.LastActivityAt

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.next = &st
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close writes the last observed snapshot and stops the writer.
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.wake)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Reporter) loop() {
	defer close(r.done)
	for range r.wake {
		r.mu.Lock()
		st := r.next
		r.next = nil
		r.mu.Unlock()
		if st != nil {
			r.write(st)
		}
	}
}

// write failures are logged once.
func (r *Reporter) write(st *Status) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := r.store.Write(ctx, r.path, st); err != nil && !r.warned {
		r.warned = true
		r.log.Warn("failed to write status file", "path", r.path, "error", err)
	}
}

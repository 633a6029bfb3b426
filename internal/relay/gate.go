package relay

import (
	"io"
	"sync"
)

// Gate holds input lines back until the child is ready for them.
//
// It starts in the buffering state, where Submit queues lines. MarkReady
// switches it to flowing exactly once, handing the queue to the stdin
// writer in arrival order before any later line. Neither call ever writes
// to the child itself, so a child that stops reading its stdin cannot
// stall the caller.
type Gate struct {
	mu sync.Mutex

	w          *inputWriter
	maxPending int

	ready       bool
	pending     [][]byte
	inputClosed bool

	dropped int
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMaxPending caps the number of queued lines. Zero means unbounded.
func WithMaxPending(n int) GateOption {
	return func(g *Gate) {
		g.maxPending = n
	}
}

// NewGate returns a buffering Gate that writes to sink. It starts the
// goroutine that owns sink; call Stop to release it.
func NewGate(sink io.WriteCloser, opts ...GateOption) *Gate {
	g := &Gate{w: newInputWriter(sink)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit queues line while buffering, or hands it to the stdin writer once
// the gate is flowing. ErrInputDropped means the child's stdin is closed
// or a previous write failed.
func (g *Gate) Submit(line []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready {
		if g.maxPending > 0 && len(g.pending) >= g.maxPending {
			g.dropped++
			return ErrQueueFull
		}
		g.pending = append(g.pending, append([]byte(nil), line...))
		return nil
	}
	return g.w.enqueue(line)
}

// MarkReady opens the gate and flushes the queue. It reports whether this
// call performed the transition; later calls do nothing. The returned error
// is the first line the stdin writer refused.
func (g *Gate) MarkReady() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return false, nil
	}
	g.ready = true

	var firstErr error
	for _, line := range g.pending {
		if err := g.w.enqueue(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.pending = nil

	if g.inputClosed {
		g.w.close()
	}
	return true, firstErr
}

// CloseInput records that no more input will arrive. The child's stdin is
// closed once everything handed over so far has been written.
func (g *Gate) CloseInput() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inputClosed = true
	if g.ready {
		g.w.close()
	}
}

// Stop discards unwritten input and closes the child's stdin.
func (g *Gate) Stop() {
	g.w.stop()
}

// Sync waits until the stdin writer is idle.
func (g *Gate) Sync() {
	g.w.sync()
}

// Err returns the write error that broke the child's stdin, if any.
func (g *Gate) Err() error {
	return g.w.failure()
}

// Ready reports whether the gate is flowing.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Pending returns the number of lines held back by the gate.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// GateCounts is a snapshot of the gate's counters.
type GateCounts struct {
	// Pending lines are held back while buffering.
	Pending int
	// Queued lines were released but not yet written.
	Queued  int
	Written int
	Dropped int
}

// Counts returns the current counters.
func (g *Gate) Counts() GateCounts {
	g.mu.Lock()
	defer g.mu.Unlock()
	queued, written, dropped := g.w.counts()
	return GateCounts{
		Pending: len(g.pending),
		Queued:  queued,
		Written: written,
		Dropped: g.dropped + dropped,
	}
}

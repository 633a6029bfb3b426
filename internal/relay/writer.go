package relay

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// stopWait bounds how long Stop waits for a write stuck in the sink.
const stopWait = time.Second

// inputWriter owns the child's stdin. Lines are queued without bound and
// written in order by a single goroutine, so a child that is not reading
// its stdin never blocks the caller.
type inputWriter struct {
	mu   sync.Mutex
	cond *sync.Cond

	sink  io.WriteCloser
	queue [][]byte
	busy  bool

	closing bool // close the sink once the queue is empty
	stopped bool // discard the queue and close now
	closed  bool
	err     error

	written int
	dropped int

	closeOnce sync.Once
	done      chan struct{}
}

func newInputWriter(sink io.WriteCloser) *inputWriter {
	w := &inputWriter{sink: sink, done: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// enqueue appends a newline-terminated copy of line to the queue.
func (w *inputWriter) enqueue(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.err != nil:
		w.dropped++
		return fmt.Errorf("%w: %v", ErrInputDropped, w.err)
	case w.closing || w.stopped:
		w.dropped++
		return ErrInputDropped
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	w.queue = append(w.queue, buf)
	w.cond.Broadcast()
	return nil
}

// close closes the sink after every queued line has been written.
func (w *inputWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closing = true
	w.cond.Broadcast()
}

// stop discards the queue and closes the sink, which also unblocks a write
// in progress on a pipe. It waits briefly for the writer to return.
func (w *inputWriter) stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		w.dropped += len(w.queue)
		w.queue = nil
		w.cond.Broadcast()
	}
	w.mu.Unlock()

	w.closeSink()
	select {
	case <-w.done:
	case <-time.After(stopWait):
	}
}

// sync blocks until the queue is written out, the writer failed, or it
// was stopped. A pending close is waited for too.
func (w *inputWriter) sync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.settledLocked() {
		w.cond.Wait()
	}
}

func (w *inputWriter) settledLocked() bool {
	if w.stopped || w.err != nil {
		return true
	}
	if len(w.queue) > 0 || w.busy {
		return false
	}
	return !w.closing || w.closed
}

func (w *inputWriter) run() {
	defer close(w.done)

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closing && !w.stopped {
			w.cond.Wait()
		}
		if w.stopped || len(w.queue) == 0 {
			w.mu.Unlock()
			w.closeSink()
			return
		}
		line := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.busy = true
		w.mu.Unlock()

		_, err := w.sink.Write(line)

		w.mu.Lock()
		w.busy = false
		if err != nil {
			if w.err == nil {
				w.err = err
			}
			w.dropped += 1 + len(w.queue)
			w.queue = nil
			w.cond.Broadcast()
			w.mu.Unlock()
			w.closeSink()
			return
		}
		w.written++
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

func (w *inputWriter) closeSink() {
	w.closeOnce.Do(func() {
		_ = w.sink.Close()
		w.mu.Lock()
		w.closed = true
		w.cond.Broadcast()
		w.mu.Unlock()
	})
}

// counts returns the queued, written and dropped totals.
func (w *inputWriter) counts() (queued, written, dropped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue), w.written, w.dropped
}

// failure returns the first write error, if any.
func (w *inputWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

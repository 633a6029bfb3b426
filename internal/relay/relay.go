package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aki/mcprelay/internal/logger"
	"github.com/aki/mcprelay/internal/transcript"
)

// DefaultMarker is the stdout substring a child prints once it accepts input.
const DefaultMarker = "[MCP] Server started"

const (
	defaultDrainTimeout   = 5 * time.Second
	defaultStatusInterval = 5 * time.Second
	stopGracePeriod       = 5 * time.Second
)

// Child is the narrow view of a supervised process the relay needs.
type Child interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// ExitCode is valid after Done is closed.
	ExitCode() int
	// Stop asks the process to terminate, escalating after a grace period.
	Stop(ctx context.Context) error
	// Close releases the parent's ends of the child's streams.
	Close() error
}

// Recorder receives every relayed line, whether or not it was forwarded.
type Recorder interface {
	Record(dir transcript.Direction, line []byte) error
}

// Observer is notified when the relay's state changes and periodically
// while it runs.
type Observer interface {
	Observe(Snapshot)
}

// Options configures a Relay. Zero values fall back to defaults.
type Options struct {
	// Marker is the substring on child stdout that opens the gate.
	Marker string
	// Filter decides which child output lines reach the parent.
	Filter Filter
	// MaxPending caps queued input while the gate is closed. Zero is unbounded.
	MaxPending int
	// ReadyTimeout opens the gate if no marker was seen in time. Zero waits forever.
	ReadyTimeout time.Duration
	// DrainTimeout bounds how long output is drained after the child exits.
	DrainTimeout time.Duration
	// StatusInterval is how often the Observer is refreshed while running.
	StatusInterval time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Recorder Recorder
	Observer Observer
	Logger   logger.Logger
}

// Relay pumps lines between the parent's stdio and a child until the child
// exits.
type Relay struct {
	child  Child
	opts   Options
	marker []byte
	gate   *Gate
	log    logger.Logger

	snap   Snapshot
	warned map[string]bool
}

// New builds a Relay around an already started child.
func New(child Child, opts Options) (*Relay, error) {
	if child == nil {
		return nil, ErrNoChild
	}
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Filter == nil {
		opts.Filter = DefaultFilter()
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = defaultDrainTimeout
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultStatusInterval
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Relay{
		child:  child,
		opts:   opts,
		marker: []byte(opts.Marker),
		gate:   NewGate(child.Stdin(), WithMaxPending(opts.MaxPending)),
		log:    opts.Logger,
		snap:   Snapshot{State: StateStarting, StartedAt: time.Now()},
		warned: make(map[string]bool),
	}, nil
}

// Gate exposes the relay's readiness gate.
func (r *Relay) Gate() *Gate {
	return r.gate
}

// Run relays until the child exits and its output has been drained, then
// returns the child's exit code. Cancelling ctx asks the child to stop; Run
// still waits for it to exit.
func (r *Relay) Run(ctx context.Context) int {
	out := NewLineReader(StreamStdout, r.child.Stdout())
	errOut := NewLineReader(StreamStderr, r.child.Stderr())
	out.Start()
	errOut.Start()
	defer out.Stop()
	defer errOut.Stop()

	outLines, errLines := out.Lines(), errOut.Lines()

	var (
		in      *LineReader
		inLines <-chan Line
	)
	if r.opts.Stdin != nil {
		in = NewLineReader(StreamStdin, r.opts.Stdin)
		in.Start()
		defer in.Stop()
		inLines = in.Lines()
	} else {
		r.gate.CloseInput()
	}

	var readyTimeout <-chan time.Time
	if r.opts.ReadyTimeout > 0 {
		t := time.NewTimer(r.opts.ReadyTimeout)
		defer t.Stop()
		readyTimeout = t.C
	}

	ticker := time.NewTicker(r.opts.StatusInterval)
	defer ticker.Stop()

	r.setState(StateBuffering)

	cancelled := ctx.Done()
	for {
		select {
		case l, ok := <-outLines:
			if !ok {
				r.readerDone(out)
				outLines = nil
				continue
			}
			r.handleOutput(l)

		case l, ok := <-errLines:
			if !ok {
				r.readerDone(errOut)
				errLines = nil
				continue
			}
			r.handleOutput(l)

		case l, ok := <-inLines:
			if !ok {
				r.readerDone(in)
				inLines = nil
				r.log.Debug("parent stdin closed")
				r.gate.CloseInput()
				continue
			}
			r.handleInput(l)

		case <-readyTimeout:
			readyTimeout = nil
			r.log.Warn("readiness marker not seen, releasing input", "timeout", r.opts.ReadyTimeout)
			r.openGate()

		case <-ticker.C:
			r.observe()

		case <-cancelled:
			cancelled = nil
			r.log.Info("stopping child")
			go func() {
				stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopGracePeriod)
				defer cancel()
				if err := r.child.Stop(stopCtx); err != nil {
					r.log.Warn("failed to stop child", "error", err)
				}
			}()

		case <-r.child.Done():
			r.drain(outLines, errLines, out, errOut)
			return r.finish()
		}
	}
}

// drain delivers whatever the child wrote before exiting. It stops when both
// output streams reach EOF or the drain timeout expires.
func (r *Relay) drain(outLines, errLines <-chan Line, out, errOut *LineReader) {
	timer := time.NewTimer(r.opts.DrainTimeout)
	defer timer.Stop()

	for outLines != nil || errLines != nil {
		select {
		case l, ok := <-outLines:
			if !ok {
				r.readerDone(out)
				outLines = nil
				continue
			}
			r.handleOutput(l)
		case l, ok := <-errLines:
			if !ok {
				r.readerDone(errOut)
				errLines = nil
				continue
			}
			r.handleOutput(l)
		case <-timer.C:
			r.log.Warn("output still open after child exit, giving up", "timeout", r.opts.DrainTimeout)
			return
		}
	}
}

func (r *Relay) finish() int {
	r.gate.Stop()
	if err := r.gate.Err(); err != nil {
		r.warnOnce("stdin", "child stdin unavailable, dropping input", "error", err)
	}
	if err := r.child.Close(); err != nil {
		r.log.Debug("closing child streams", "error", err)
	}

	code := r.child.ExitCode()
	r.snap.ExitCode = code
	r.snap.EndedAt = time.Now()
	r.setState(StateExited)
	r.log.Info("child exited", "exit_code", code, "forwarded", r.snap.Forwarded, "filtered", r.snap.Filtered)
	return code
}

func (r *Relay) handleOutput(l Line) {
	r.snap.LastActivityAt = time.Now()

	dst := r.opts.Stdout
	dir := transcript.DirOut
	if l.Stream == StreamStderr {
		dst = r.opts.Stderr
		dir = transcript.DirErr
		r.snap.LinesErr++
	} else {
		r.snap.LinesOut++
	}
	r.record(dir, l.Text)

	if r.opts.Filter.Decide(l.Stream, l.Text) == Forward {
		r.forward(dst, l)
		r.snap.Forwarded++
	} else {
		r.snap.Filtered++
	}

	if l.Stream == StreamStdout && bytes.Contains(l.Text, r.marker) {
		r.openGate()
	}
}

func (r *Relay) handleInput(l Line) {
	r.snap.LastActivityAt = time.Now()
	r.snap.LinesIn++
	r.record(transcript.DirIn, l.Text)

	if err := r.gate.Submit(l.Text); err != nil {
		switch {
		case errors.Is(err, ErrQueueFull):
			r.warnOnce("queue", "input queue full, dropping line", "max_pending", r.opts.MaxPending)
		default:
			r.warnOnce("stdin", "child stdin unavailable, dropping input", "error", err)
		}
	}
}

func (r *Relay) openGate() {
	pending := r.gate.Pending()
	opened, err := r.gate.MarkReady()
	if err != nil {
		r.warnOnce("stdin", "child stdin unavailable, dropping input", "error", err)
	}
	if !opened {
		return
	}
	r.snap.ReadyAt = time.Now()
	r.log.Info("child ready", "flushed", pending)
	r.setState(StateFlowing)
}

func (r *Relay) forward(dst io.Writer, l Line) {
	buf := make([]byte, 0, len(l.Text)+1)
	buf = append(buf, l.Text...)
	buf = append(buf, '\n')
	if _, err := dst.Write(buf); err != nil {
		r.warnOnce("forward-"+string(l.Stream), "failed to forward output", "stream", l.Stream, "error", err)
	}
}

func (r *Relay) record(dir transcript.Direction, line []byte) {
	if r.opts.Recorder == nil {
		return
	}
	if err := r.opts.Recorder.Record(dir, line); err != nil {
		r.warnOnce("transcript", "failed to write transcript", "error", err)
	}
}

func (r *Relay) readerDone(lr *LineReader) {
	if err := lr.Err(); err != nil {
		r.warnOnce("read-"+string(lr.Stream()), "stream read failed, treating as closed", "stream", lr.Stream(), "error", err)
	}
}

func (r *Relay) warnOnce(key, msg string, args ...any) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.log.Warn(msg, args...)
}

package relay

import (
	"errors"
	"io"
	"sync"
)

const readChunkSize = 4096

// PollResult is the outcome of a non-blocking LineReader.Poll.
type PollResult int

const (
	// PollEmpty means no complete line is available yet.
	PollEmpty PollResult = iota
	// PollLine means a line was returned.
	PollLine
	// PollEOF means the stream ended and every line has been consumed.
	PollEOF
)

// LineReader turns a byte stream into a sequence of Lines. A single
// goroutine performs the (blocking) reads so that consumers never block:
// they either select on Lines or call Poll.
type LineReader struct {
	stream Stream
	src    io.Reader
	lines  chan Line
	stop   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu  sync.Mutex
	err error
}

// NewLineReader creates a reader for src. Call Start to begin reading.
func NewLineReader(stream Stream, src io.Reader) *LineReader {
	return &LineReader{
		stream: stream,
		src:    src,
		lines:  make(chan Line, 64),
		stop:   make(chan struct{}),
	}
}

// Stream returns the stream this reader serves.
func (r *LineReader) Stream() Stream {
	return r.stream
}

// Start launches the read goroutine. It is safe to call more than once.
func (r *LineReader) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Lines returns the channel lines are published on. It is closed after the
// stream ends and any final partial line has been delivered.
func (r *LineReader) Lines() <-chan Line {
	return r.lines
}

// Poll returns the next line without blocking.
func (r *LineReader) Poll() (Line, PollResult) {
	select {
	case l, ok := <-r.lines:
		if !ok {
			return Line{}, PollEOF
		}
		return l, PollLine
	default:
		return Line{}, PollEmpty
	}
}

// Err returns the read error that ended the stream, if it was anything other
// than io.EOF. It is only meaningful once Lines has been closed.
func (r *LineReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stop abandons the stream. A goroutine blocked publishing a line returns;
// one blocked inside Read returns once the underlying reader is closed.
func (r *LineReader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *LineReader) run() {
	defer close(r.lines)

	var lb LineBuffer
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.src.Read(buf)
		if n > 0 {
			lb.Feed(buf[:n])
			if !r.publish(&lb) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			lb.Finish()
			r.publish(&lb)
			return
		}
	}
}

// publish sends every complete line in lb. It reports false if the reader
// was stopped while waiting.
func (r *LineReader) publish(lb *LineBuffer) bool {
	for {
		text, ok := lb.Next()
		if !ok {
			return true
		}
		select {
		case r.lines <- Line{Stream: r.stream, Text: text}:
		case <-r.stop:
			return false
		}
	}
}

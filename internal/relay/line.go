// Package relay moves lines between a parent's stdio and a supervised child.
//
// Three LineReaders (child stdout, child stderr, parent stdin) feed a single
// loop. Output lines pass through a Filter on their way to the parent; input
// lines pass through a Gate that holds them back until the child announces
// readiness on stdout.
package relay

import "bytes"

// Stream identifies one of the relayed byte streams.
type Stream string

// Relayed streams.
const (
	StreamStdin  Stream = "stdin"
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Line is one newline-delimited record read from a stream. Text never
// includes the terminating newline.
type Line struct {
	Stream Stream
	Text   []byte
}

// LineBuffer accumulates bytes and hands them back one complete line at a
// time. Bytes after the last newline stay buffered until more data arrives
// or Finish is called.
type LineBuffer struct {
	buf      []byte
	finished bool
}

// Feed appends p to the buffer. Feed after Finish is ignored.
func (b *LineBuffer) Feed(p []byte) {
	if b.finished {
		return
	}
	b.buf = append(b.buf, p...)
}

// Next returns the oldest complete line. Once Finish has been called an
// unterminated residue counts as a complete line and is returned exactly once.
func (b *LineBuffer) Next() ([]byte, bool) {
	if idx := bytes.IndexByte(b.buf, '\n'); idx >= 0 {
		line := trimCR(b.buf[:idx])
		out := append([]byte(nil), line...)
		b.buf = b.buf[idx+1:]
		return out, true
	}
	if b.finished && len(b.buf) > 0 {
		out := append([]byte(nil), trimCR(b.buf)...)
		b.buf = nil
		return out, true
	}
	return nil, false
}

// Finish marks the end of the stream.
func (b *LineBuffer) Finish() {
	b.finished = true
}

// Buffered reports how many bytes are held back waiting for a newline.
func (b *LineBuffer) Buffered() int {
	return len(b.buf)
}

func trimCR(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\r' {
		return p[:n-1]
	}
	return p
}

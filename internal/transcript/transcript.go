// Package transcript writes an append-only record of everything a relay
// carries, one entry per line, tagged by direction.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Direction tags a transcript entry with where the line travelled.
type Direction string

// Transcript directions.
const (
	DirIn  Direction = "IN"  // parent stdin to child
	DirOut Direction = "OUT" // child stdout
	DirErr Direction = "ERR" // child stderr
	DirSys Direction = "SYS" // relay lifecycle notes
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("transcript is closed")

// lockWait bounds how long Record waits for another relay holding the
// file. Record runs on the relay loop, so the wait is kept short; an entry
// that cannot be written in time is reported as an error and skipped.
const lockWait = 200 * time.Millisecond

// Transcript is an append-only line log. Each entry is written with a
// single write while holding an exclusive lock on the file, so relays
// sharing one transcript never interleave partial entries.
type Transcript struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	lock   *flock.Flock
	seq    uint64
	closed bool
	now    func() time.Time
}

// Open opens path for appending, creating it and its directory if needed.
func Open(path string) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}

	return &Transcript{
		path: path,
		file: f,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}, nil
}

// Path returns the transcript file path.
func (t *Transcript) Path() string {
	return t.path
}

// Record appends one entry.
func (t *Transcript) Record(dir Direction, line []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	t.seq++
	entry := t.format(dir, line)

	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()
	locked, err := t.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock transcript: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock transcript: timed out after %s", lockWait)
	}
	defer func() { _ = t.lock.Unlock() }()

	if _, err := t.file.Write(entry); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// Note appends a relay lifecycle entry.
func (t *Transcript) Note(format string, args ...any) error {
	return t.Record(DirSys, []byte(fmt.Sprintf(format, args...)))
}

// Close flushes and closes the file. Further Records fail with ErrClosed.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	syncErr := t.file.Sync()
	closeErr := t.file.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to close transcript: %w", closeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync transcript: %w", syncErr)
	}
	return nil
}

// format renders "<time> <seq> [<DIR>] <line>\n".
func (t *Transcript) format(dir Direction, line []byte) []byte {
	ts := t.now().UTC().Format(time.RFC3339Nano)
	buf := make([]byte, 0, len(ts)+len(line)+32)
	buf = append(buf, ts...)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, t.seq, 10)
	buf = append(buf, " ["...)
	buf = append(buf, dir...)
	buf = append(buf, "] "...)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	return buf
}

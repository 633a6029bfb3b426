package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedEntry is returned by ParseEntry for lines not written by Record.
var ErrMalformedEntry = errors.New("malformed transcript entry")

// Entry is one parsed transcript line.
type Entry struct {
	Time time.Time
	Seq  uint64
	Dir  Direction
	Line string
}

// ParseEntry parses "<time> <seq> [<DIR>] <line>".
func ParseEntry(s string) (Entry, error) {
	ts, rest, ok := strings.Cut(s, " ")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedEntry, s)
	}
	seq, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedEntry, s)
	}
	tag, line, ok := strings.Cut(rest, "] ")
	if !ok || !strings.HasPrefix(tag, "[") {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedEntry, s)
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: bad time: %v", ErrMalformedEntry, err)
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: bad sequence: %v", ErrMalformedEntry, err)
	}
	return Entry{Time: t, Seq: n, Dir: Direction(tag[1:]), Line: line}, nil
}

// TailOptions configures Tail.
type TailOptions struct {
	// Lines is how many existing entries to show first; 0 shows all of them.
	Lines int
	// Directions limits output to these directions; empty means all.
	Directions []Direction
	// Follow keeps polling for new entries until ctx is done.
	Follow bool
	// PollInterval is how often the file is checked while following.
	PollInterval time.Duration
	// Format renders an entry; the raw line is written when nil.
	Format func(Entry) string
	Writer io.Writer
}

// Tail prints the end of the transcript at path and, when following, every
// entry appended afterwards. Following stops without error when ctx is done.
func Tail(ctx context.Context, path string, opts TailOptions) error {
	if opts.Writer == nil {
		opts.Writer = io.Discard
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	t := &tailer{opts: opts}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	t.offset = int64(len(data))

	entries := t.parse(data)
	if opts.Lines > 0 && len(entries) > opts.Lines {
		entries = entries[len(entries)-opts.Lines:]
	}
	if err := t.write(entries); err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.poll(path); err != nil {
				return err
			}
		}
	}
}

type tailer struct {
	opts    TailOptions
	offset  int64
	partial []byte
}

// poll reads whatever was appended since the last call. A file that shrank
// was truncated or replaced and is read again from the start.
func (t *tailer) poll(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat transcript: %w", err)
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek transcript: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	t.offset += int64(len(data))
	return t.write(t.parse(data))
}

// parse returns the complete entries in data that pass the direction
// filter. A trailing partial line is kept for the next call.
func (t *tailer) parse(data []byte) []Entry {
	if len(t.partial) > 0 {
		data = append(t.partial, data...)
		t.partial = nil
	}

	var entries []Entry
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		data = data[i+1:]

		e, err := ParseEntry(line)
		if err != nil || !t.wanted(e.Dir) {
			continue
		}
		entries = append(entries, e)
	}
	if len(data) > 0 {
		t.partial = append([]byte(nil), data...)
	}
	return entries
}

func (t *tailer) wanted(dir Direction) bool {
	if len(t.opts.Directions) == 0 {
		return true
	}
	for _, d := range t.opts.Directions {
		if d == dir {
			return true
		}
	}
	return false
}

func (t *tailer) write(entries []Entry) error {
	for _, e := range entries {
		var s string
		if t.opts.Format != nil {
			s = t.opts.Format(e)
		} else {
			s = fmt.Sprintf("%s %d [%s] %s", e.Time.Format(time.RFC3339Nano), e.Seq, e.Dir, e.Line)
		}
		if _, err := io.WriteString(t.opts.Writer, s+"\n"); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// ParseDirections parses a comma separated list such as "IN,OUT".
func ParseDirections(s string) ([]Direction, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var dirs []Direction
	for _, part := range strings.Split(s, ",") {
		d := Direction(strings.ToUpper(strings.TrimSpace(part)))
		switch d {
		case DirIn, DirOut, DirErr, DirSys:
			dirs = append(dirs, d)
		default:
			return nil, fmt.Errorf("unknown direction %q", part)
		}
	}
	return dirs, nil
}

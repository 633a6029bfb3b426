package transcript

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeTranscript(t *testing.T, path string, entries ...[2]string) {
	t.Helper()
	tr, err := Open(path)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, tr.Record(Direction(e[0]), []byte(e[1])))
	}
	require.NoError(t, tr.Close())
}

func TestParseEntry(t *testing.T) {
	e, err := ParseEntry("2025-03-01T10:00:00.5Z 12 [OUT] {\"id\":1} [x] y")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), e.Seq)
	assert.Equal(t, DirOut, e.Dir)
	assert.Equal(t, `{"id":1} [x] y`, e.Line)
	assert.True(t, e.Time.Equal(time.Date(2025, 3, 1, 10, 0, 0, 5e8, time.UTC)))

	e, err = ParseEntry("2025-03-01T10:00:00Z 3 [IN] ")
	require.NoError(t, err)
	assert.Equal(t, "", e.Line)

	for _, bad := range []string{"", "garbage", "2025 1 [OUT] x", "2025-03-01T10:00:00Z x [OUT] y", "2025-03-01T10:00:00Z 1 OUT y"} {
		_, err := ParseEntry(bad)
		assert.ErrorIs(t, err, ErrMalformedEntry, bad)
	}
}

func TestParseDirections(t *testing.T) {
	dirs, err := ParseDirections("in, out")
	require.NoError(t, err)
	assert.Equal(t, []Direction{DirIn, DirOut}, dirs)

	dirs, err = ParseDirections("")
	require.NoError(t, err)
	assert.Nil(t, dirs)

	_, err = ParseDirections("IN,SIDEWAYS")
	assert.Error(t, err)
}

func TestTail_LastLinesAndFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	writeTranscript(t, path,
		[2]string{"SYS", "start"},
		[2]string{"IN", "a"},
		[2]string{"OUT", "noise"},
		[2]string{"OUT", "{1}"},
		[2]string{"ERR", "warn"},
		[2]string{"OUT", "{2}"},
	)

	var out bytes.Buffer
	err := Tail(context.Background(), path, TailOptions{
		Lines:      2,
		Directions: []Direction{DirOut},
		Format:     func(e Entry) string { return string(e.Dir) + ":" + e.Line },
		Writer:     &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "OUT:{1}\nOUT:{2}\n", out.String())

	out.Reset()
	require.NoError(t, Tail(context.Background(), path, TailOptions{Writer: &out}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "1 [SYS] start")
}

func TestTail_Missing(t *testing.T) {
	err := Tail(context.Background(), filepath.Join(t.TempDir(), "nope.log"), TailOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTail_Follow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	writeTranscript(t, path, [2]string{"IN", "before"})

	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Tail(ctx, path, TailOptions{
			Follow:       true,
			PollInterval: 10 * time.Millisecond,
			Format:       func(e Entry) string { return e.Line },
			Writer:       out,
		})
	}()

	assert.Eventually(t, func() bool { return out.String() == "before\n" }, 2*time.Second, 10*time.Millisecond)

	// a partial entry is held back until its newline arrives
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("2025-03-01T10:00:00Z 2 [OUT] aft")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "before\n", out.String())

	_, err = f.WriteString("er\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool { return out.String() == "before\nafter\n" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not stop")
	}
}

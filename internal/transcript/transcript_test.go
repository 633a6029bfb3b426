package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestTranscript_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "relay.log")

	tr, err := Open(path)
	require.NoError(t, err)
	tr.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, tr.Record(DirIn, []byte(`{"id":1}`)))
	require.NoError(t, tr.Record(DirOut, []byte("[MCP] Server started")))
	require.NoError(t, tr.Record(DirErr, []byte("warning")))
	require.NoError(t, tr.Close())

	lines := readLines(t, path)
	assert.Equal(t, []string{
		`2025-03-01T12:00:00Z 1 [IN] {"id":1}`,
		`2025-03-01T12:00:00Z 2 [OUT] [MCP] Server started`,
		`2025-03-01T12:00:00Z 3 [ERR] warning`,
	}, lines)
}

func TestTranscript_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Note("run %d", 1))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Note("run %d", 2))
	require.NoError(t, second.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "[SYS] run 1"))
	assert.True(t, strings.HasSuffix(lines[1], "[SYS] run 2"))
}

func TestTranscript_VisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	tr, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	require.NoError(t, tr.Record(DirOut, []byte("hello")))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[OUT] hello")
}

func TestTranscript_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")

	a, err := Open(path)
	require.NoError(t, err)
	b, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, tr := range []*Transcript{a, b} {
		wg.Add(1)
		go func(tr *Transcript) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, tr.Record(DirOut, []byte(strings.Repeat("x", 200))))
			}
		}(tr)
	}
	wg.Wait()
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())

	lines := readLines(t, path)
	assert.Len(t, lines, 100)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, "[OUT] "+strings.Repeat("x", 200)))
	}
}

func TestTranscript_RecordAfterClose(t *testing.T) {
	tr, err := Open(filepath.Join(t.TempDir(), "relay.log"))
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.ErrorIs(t, tr.Record(DirIn, []byte("late")), ErrClosed)
}

func TestTranscript_RecordGivesUpOnHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	tr, err := Open(path)
	require.NoError(t, err)
	defer tr.Close()

	held := flock.New(path + ".lock")
	require.NoError(t, held.Lock())

	start := time.Now()
	err = tr.Record(DirOut, []byte("skipped"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to lock transcript")
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, held.Unlock())
	require.NoError(t, tr.Record(DirOut, []byte("kept")))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "kept")
}

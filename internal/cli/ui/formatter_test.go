package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/mcprelay/internal/status"
	"github.com/aki/mcprelay/internal/transcript"
)

func captureOutput(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := Stdout, Stderr
	Stdout, Stderr = stdout, stderr
	t.Cleanup(func() { Stdout, Stderr = oldOut, oldErr })
	return stdout, stderr
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      OutputFormat
		wantError bool
	}{
		{name: "empty string defaults to pretty", input: "", want: FormatPretty},
		{name: "pretty format", input: "pretty", want: FormatPretty},
		{name: "json format", input: "json", want: FormatJSON},
		{name: "invalid format", input: "xml", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputJSON(t *testing.T) {
	stdout, _ := captureOutput(t)

	require.NoError(t, OutputJSON(map[string]string{"version": "1.0.0"}))

	var got map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "1.0.0", got["version"])
}

func TestMessagesGoToTheRightStream(t *testing.T) {
	stdout, stderr := captureOutput(t)

	Error("spawn failed: %s", "no such file")
	Warning("dropped %d lines", 2)
	Info("relaying")
	Success("done")

	assert.Contains(t, stderr.String(), "spawn failed: no such file")
	assert.Contains(t, stderr.String(), "dropped 2 lines")
	assert.Contains(t, stdout.String(), "relaying")
	assert.Contains(t, stdout.String(), "done")
	assert.NotContains(t, stdout.String(), "spawn failed")
}

func TestNewTable_WritesToStdout(t *testing.T) {
	stdout, _ := captureOutput(t)

	tbl := NewTable("FIELD", "VALUE")
	tbl.AddRow("state", "flowing")
	tbl.Print()

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "FIELD")
	assert.Contains(t, lines[1], "flowing")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "< 1s", FormatDuration(200*time.Millisecond))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m5s", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h10m", FormatDuration(2*time.Hour+10*time.Minute))
	assert.Equal(t, "3d", FormatDuration(72*time.Hour))
	assert.Equal(t, "-", FormatTime(time.Time{}))
}

func TestFormatEntry(t *testing.T) {
	got := FormatEntry(transcript.Entry{
		Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Seq:  4,
		Dir:  transcript.DirIn,
		Line: `{"method":"ping"}`,
	})
	assert.Contains(t, got, "IN")
	assert.True(t, strings.HasSuffix(got, `{"method":"ping"}`))
}

func TestPrintStatus(t *testing.T) {
	stdout, _ := captureOutput(t)

	started := time.Now().Add(-90 * time.Second)
	PrintStatus(&status.Status{
		RunID:     "run-1",
		PID:       99,
		Command:   []string{"editor", "-mcp"},
		State:     "exited",
		LinesIn:   4,
		ExitCode:  2,
		StartedAt: started,
		EndedAt:   started.Add(90 * time.Second),
	})

	out := stdout.String()
	assert.Contains(t, out, "Relay run-1")
	assert.Contains(t, out, "editor -mcp")
	assert.Contains(t, out, "4 read")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "exit code")
}

//go:build !windows

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/mcprelay/internal/status"
)

// echoServer prints chatter, announces readiness, then answers each input
// line with a record.
const echoServer = `echo "Initializing editor"
echo "[MCP] Server started"
while read l; do echo "{\"got\":\"$l\"}"; done
echo '{"shutdown":true}' >&2
echo "stderr noise" >&2`

func TestRelay_EndToEnd(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "relay.log")
	statusPath := filepath.Join(dir, "status.yaml")

	res := execute(t, "first\nsecond\n",
		"--log-level", "error",
		"--transcript", transcriptPath,
		"--status-file", statusPath,
		"sh", "-c", echoServer,
	)
	require.Equal(t, 0, res.code, res.uiErr)

	assert.Equal(t, "{\"got\":\"first\"}\n{\"got\":\"second\"}\n", res.stdout)
	assert.Contains(t, res.stderr, `{"shutdown":true}`)
	assert.NotContains(t, res.stderr, "stderr noise")

	data, err := os.ReadFile(transcriptPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "[IN] first")
	assert.Contains(t, text, "[OUT] Initializing editor")
	assert.Contains(t, text, "[ERR] stderr noise")
	assert.Contains(t, text, "[SYS] start")
	assert.Contains(t, text, "[SYS] exit code=0")

	tailed := execute(t, "", "tail", "-n", "10", "--direction", "IN", transcriptPath)
	require.Equal(t, 0, tailed.code, tailed.uiErr)
	assert.Contains(t, tailed.ui, "first")
	assert.Contains(t, tailed.ui, "second")
	assert.NotContains(t, tailed.ui, "Initializing")

	st, err := status.NewStore().Read(context.Background(), statusPath)
	require.NoError(t, err)
	assert.Equal(t, "exited", st.State)
	assert.Equal(t, 0, st.ExitCode)
	assert.Equal(t, 2, st.InputWritten)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, []string{"sh", "-c", echoServer}, st.Command)
	assert.False(t, st.ReadyAt.IsZero())
}

func TestRelay_ExitCodePropagates(t *testing.T) {
	isolate(t)
	res := execute(t, "", "--log-level", "error", "sh", "-c", "exit 7")
	assert.Equal(t, 7, res.code)
	assert.Empty(t, res.uiErr)
}

func TestRelay_SpawnFailure(t *testing.T) {
	isolate(t)
	missing := filepath.Join(t.TempDir(), "no-such-editor")
	res := execute(t, "", missing)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.uiErr, "no-such-editor")
}

func TestRelay_ArgumentsPassThrough(t *testing.T) {
	isolate(t)
	res := execute(t, "",
		"--log-level", "error",
		"--inject-arg=-mcp",
		"--inject-arg=-logFile",
		"sh", "-c", `echo "{\"args\":\"$*\"}"`, "sh", "--marker", "x",
	)
	require.Equal(t, 0, res.code, res.uiErr)
	assert.Equal(t, "{\"args\":\"--marker x -mcp -logFile\"}\n", res.stdout)
}

func TestRelay_UnknownFlagsReachChild(t *testing.T) {
	isolate(t)
	res := execute(t, "",
		"-mcp",
		"--log-level", "error",
		"--projectPath=/work/game",
		"sh", "-c", `echo "{\"args\":\"$*\"}"`, "sh", "user",
	)
	require.Equal(t, 0, res.code, res.uiErr)
	assert.Equal(t, "{\"args\":\"user -mcp --projectPath=/work/game\"}\n", res.stdout)
}

func TestRelay_PassStderrAndProjectConfig(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, ".mcprelay")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(`
filter:
  stdout:
    prefixes: ["data:"]
`), 0o644))

	res := execute(t, "",
		"--log-level", "error",
		"--pass-stderr",
		"sh", "-c", `echo "data: 1"; echo "{}"; echo "plain" >&2`,
	)
	require.Equal(t, 0, res.code, res.uiErr)
	assert.Equal(t, "data: 1\n", res.stdout)
	assert.Contains(t, res.stderr, "plain\n")
}

func TestRelay_ReadyTimeout(t *testing.T) {
	isolate(t)
	// never prints the marker; input is released by the timeout
	res := execute(t, "ping\n",
		"--log-level", "error",
		"--ready-timeout", "100ms",
		"sh", "-c", `read l; echo "{\"got\":\"$l\"}"`,
	)
	require.Equal(t, 0, res.code, res.uiErr)
	assert.Equal(t, "{\"got\":\"ping\"}\n", res.stdout)
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

func TestUnity_EndToEnd(t *testing.T) {
	isolate(t)
	bin := t.TempDir()
	project := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(project, "ProjectSettings"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(project, "ProjectSettings", "ProjectVersion.txt"),
		[]byte("m_EditorVersion: 2022.3.1f1\n"), 0o644))

	editor := filepath.Join(bin, "Unity")
	writeScript(t, editor, `echo "[MCP] Server started"
echo "{\"argv\":\"$*\",\"cwd\":\"$(pwd)\"}"`)

	hub := filepath.Join(bin, "hub")
	writeScript(t, hub, fmt.Sprintf(`echo "2021.1.1f1 , installed at /nowhere"
echo "2022.3.1f1 , installed at %s"`, editor))

	res := execute(t, "",
		"--log-level", "error",
		"unity", "--project-path", project, "--hub-path", hub, "--", "-batchmode",
	)
	require.Equal(t, 0, res.code, res.uiErr)

	wantArgs := strings.Join([]string{"-projectPath", project, "-batchmode", "-mcp", "-logFile", "-"}, " ")
	assert.Contains(t, res.stdout, `"argv":"`+wantArgs+`"`)
}

func TestUnity_RequiresProjectPath(t *testing.T) {
	isolate(t)
	res := execute(t, "", "unity")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.uiErr, "project-path")
}

// Package unity finds the Unity editor a project was created with, using the
// Unity Hub's headless command line.
package unity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aki/mcprelay/internal/logger"
)

const (
	versionFile   = "ProjectSettings/ProjectVersion.txt"
	versionKey    = "m_EditorVersion:"
	installedAtOp = " , installed at "
)

var (
	// ErrNoVersion is returned when ProjectVersion.txt has no editor version.
	ErrNoVersion = errors.New("project has no editor version")
	// ErrEditorNotInstalled is returned when the hub does not list the version.
	ErrEditorNotInstalled = errors.New("editor version not installed")
	// ErrNoHub is returned when no Unity Hub executable is known.
	ErrNoHub = errors.New("unity hub not found")
)

// ReadProjectVersion returns the editor version recorded in the project.
func ReadProjectVersion(projectDir string) (string, error) {
	f, err := os.Open(filepath.Join(projectDir, filepath.FromSlash(versionFile)))
	if err != nil {
		return "", fmt.Errorf("failed to open project version: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, versionKey); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read project version: %w", err)
	}
	return "", fmt.Errorf("%w: %s", ErrNoVersion, projectDir)
}

// ParseEditorList finds version in the hub's "editors -i" output and returns
// the install path reported for it.
func ParseEditorList(out, version string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, version) {
			continue
		}
		_, path, ok := strings.Cut(line, installedAtOp)
		if !ok {
			continue
		}
		if path = strings.TrimSpace(path); path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrEditorNotInstalled, version)
}

// EditorExecutable turns an install path into something exec can run. macOS
// reports the .app bundle.
func EditorExecutable(path string) string {
	if strings.HasSuffix(path, ".app") {
		return filepath.Join(path, "Contents", "MacOS", "Unity")
	}
	return path
}

// DefaultHubPath returns where Unity Hub is installed on this platform.
func DefaultHubPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "/Applications/Unity Hub.app/Contents/MacOS/Unity Hub", nil
	case "windows":
		dir := os.Getenv("PROGRAMFILES")
		if dir == "" {
			dir = `C:\Program Files`
		}
		return filepath.Join(dir, "Unity Hub", "Unity Hub.exe"), nil
	default:
		path, err := exec.LookPath("unityhub")
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoHub, err)
		}
		return path, nil
	}
}

// Runner runs a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Locator resolves a project's editor through Unity Hub.
type Locator struct {
	// HubPath overrides DefaultHubPath when set.
	HubPath string
	// Run defaults to executing the command.
	Run Runner
}

// EditorPath returns the executable of the editor matching projectDir's
// recorded version.
func (l *Locator) EditorPath(ctx context.Context, projectDir string) (string, error) {
	version, err := ReadProjectVersion(projectDir)
	if err != nil {
		return "", err
	}

	hub := l.HubPath
	if hub == "" {
		if hub, err = DefaultHubPath(); err != nil {
			return "", err
		}
	}

	run := l.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, hub, "--", "--headless", "editors", "-i")
	if err != nil {
		return "", fmt.Errorf("failed to list editors with %s: %w", hub, err)
	}

	path, err := ParseEditorList(string(out), version)
	if err != nil {
		return "", err
	}
	exe := EditorExecutable(path)
	logger.FromContext(ctx).Debug("resolved unity editor", "version", version, "hub", hub, "editor", exe)
	return exe, nil
}

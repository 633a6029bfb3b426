// Package status persists a relay's progress as a small YAML file that other
// processes can read while the relay runs.
package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ErrLockTimeout is returned when the status lock cannot be taken in time.
var ErrLockTimeout = errors.New("status file lock timeout")

// Status is the on-disk snapshot of one relay run.
type Status struct {
	RunID   string   `yaml:"run_id" json:"run_id"`
	PID     int      `yaml:"pid" json:"pid"`
	Command []string `yaml:"command" json:"command"`
	State   string   `yaml:"state" json:"state"`

	Pending      int `yaml:"pending" json:"pending"`
	LinesIn      int `yaml:"lines_in" json:"lines_in"`
	LinesOut     int `yaml:"lines_out" json:"lines_out"`
	LinesErr     int `yaml:"lines_err" json:"lines_err"`
	Forwarded    int `yaml:"forwarded" json:"forwarded"`
	Filtered     int `yaml:"filtered" json:"filtered"`
	InputQueued  int `yaml:"input_queued" json:"input_queued"`
	InputWritten int `yaml:"input_written" json:"input_written"`
	InputDropped int `yaml:"input_dropped" json:"input_dropped"`

	ExitCode       int       `yaml:"exit_code" json:"exit_code"`
	StartedAt      time.Time `yaml:"started_at" json:"started_at"`
	ReadyAt        time.Time `yaml:"ready_at,omitempty" json:"ready_at,omitempty"`
	EndedAt        time.Time `yaml:"ended_at,omitempty" json:"ended_at,omitempty"`
	LastActivityAt time.Time `yaml:"last_activity_at,omitempty" json:"last_activity_at,omitempty"`
}

// Store reads and writes status files under an advisory lock held on a
// sibling ".lock" file, so the rename in Write never races a reader's lock.
type Store struct {
	lockTimeout time.Duration
}

// NewStore creates a store with the default lock timeout.
func NewStore() *Store {
	return &Store{lockTimeout: 2 * time.Second}
}

// Read loads the status at path under a shared lock.
func (s *Store) Read(ctx context.Context, path string) (*Status, error) {
	lock := flock.New(path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := lock.TryRLockContext(lockCtx, 10*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var st Status
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &st, nil
}

// Write replaces the status at path atomically under an exclusive lock.
func (s *Store) Write(ctx context.Context, path string, st *Status) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := flock.New(path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer func() { _ = lock.Unlock() }()

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the per-user and per-project configuration directory.
	DirName = ".mcprelay"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
)

// Loader layers configuration files over the defaults.
type Loader struct {
	homeDir    string
	projectDir string
}

// NewLoader creates a loader. Either directory may be empty to skip it.
func NewLoader(homeDir, projectDir string) *Loader {
	return &Loader{
		homeDir:    homeDir,
		projectDir: projectDir,
	}
}

// Load returns the defaults overlaid by the global file, then the project
// file, then each of extra in order. Missing global and project files are
// skipped; a missing extra file is an error.
func (l *Loader) Load(extra ...string) (*Config, error) {
	cfg := Default()

	if l.homeDir != "" {
		path := filepath.Join(l.homeDir, DirName, FileName)
		if err := loadFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load global config: %w", err)
		}
	}

	if l.projectDir != "" {
		path := filepath.Join(l.projectDir, DirName, FileName)
		if err := loadFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load project config: %w", err)
		}
	}

	for _, path := range extra {
		if path == "" {
			continue
		}
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path on top of cfg. Keys absent from the file keep the
// values already in cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ValidateYAML(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Write saves cfg as YAML, creating parent directories.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

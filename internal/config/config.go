// Package config loads mcprelay settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/aki/mcprelay/internal/relay"
)

// Config is the full relay configuration.
type Config struct {
	// Marker is the stdout substring that signals the child accepts input.
	Marker string `yaml:"marker"`

	// InjectArgs are appended to the child's argument vector.
	InjectArgs []string `yaml:"inject_args,omitempty"`

	Filter FilterConfig `yaml:"filter"`
	Gate   GateConfig   `yaml:"gate"`

	// DrainTimeout bounds output draining after the child exits.
	DrainTimeout Duration `yaml:"drain_timeout"`

	// Transcript is an optional path for the IN/OUT/ERR log.
	Transcript string `yaml:"transcript,omitempty"`
	// StatusFile is an optional path for the YAML status snapshot.
	StatusFile string `yaml:"status_file,omitempty"`

	Log   LogConfig   `yaml:"log"`
	Unity UnityConfig `yaml:"unity"`
}

// FilterConfig holds one rule per output stream.
type FilterConfig struct {
	Stdout RuleConfig `yaml:"stdout"`
	Stderr RuleConfig `yaml:"stderr"`
}

// RuleConfig mirrors relay.Rule.
type RuleConfig struct {
	PassAll  bool     `yaml:"pass_all,omitempty"`
	Prefixes []string `yaml:"prefixes,omitempty"`
	Contains []string `yaml:"contains,omitempty"`
}

// GateConfig controls the readiness gate.
type GateConfig struct {
	// MaxPending caps queued input lines; 0 is unbounded.
	MaxPending int `yaml:"max_pending"`
	// ReadyTimeout opens the gate without a marker; 0 waits forever.
	ReadyTimeout Duration `yaml:"ready_timeout"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File redirects diagnostics away from stderr when set.
	File string `yaml:"file,omitempty"`
}

// UnityConfig controls the unity subcommand.
type UnityConfig struct {
	// HubPath overrides the platform default Unity Hub executable.
	HubPath string `yaml:"hub_path,omitempty"`
	// InjectArgs replace the top-level inject_args for Unity editors.
	InjectArgs []string `yaml:"inject_args,omitempty"`
}

// DefaultUnityInjectArgs put the editor in MCP mode with its log on stdout.
var DefaultUnityInjectArgs = []string{"-mcp", "-logFile", "-"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Marker: relay.DefaultMarker,
		Filter: FilterConfig{
			Stdout: RuleConfig{Prefixes: []string{relay.DefaultRecordPrefix}},
			Stderr: RuleConfig{Prefixes: []string{relay.DefaultRecordPrefix}},
		},
		DrainTimeout: Duration(5 * time.Second),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Unity: UnityConfig{
			InjectArgs: append([]string(nil), DefaultUnityInjectArgs...),
		},
	}
}

// Validate reports settings the relay cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Marker == "" {
		errs = append(errs, errors.New("marker must not be empty"))
	}
	if c.Gate.MaxPending < 0 {
		errs = append(errs, fmt.Errorf("gate.max_pending must not be negative, got %d", c.Gate.MaxPending))
	}
	if c.Gate.ReadyTimeout < 0 {
		errs = append(errs, fmt.Errorf("gate.ready_timeout must not be negative, got %s", c.Gate.ReadyTimeout))
	}
	if c.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("drain_timeout must not be negative, got %s", c.DrainTimeout))
	}
	return errors.Join(errs...)
}

// RelayFilter builds the relay filter described by the config.
func (c *Config) RelayFilter() *relay.RuleFilter {
	return &relay.RuleFilter{Rules: map[relay.Stream]relay.Rule{
		relay.StreamStdout: c.Filter.Stdout.rule(),
		relay.StreamStderr: c.Filter.Stderr.rule(),
	}}
}

func (r RuleConfig) rule() relay.Rule {
	return relay.Rule{PassAll: r.PassAll, Prefixes: r.Prefixes, Contains: r.Contains}
}

// Duration is a time.Duration that reads and writes as "5s" in YAML.
type Duration time.Duration

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

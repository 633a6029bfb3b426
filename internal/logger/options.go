package logger

import (
	"io"
	"log/slog"
)

// Format is the encoding of log records.
type Format string

const (
	// FormatText is logfmt-style key=value output
	FormatText Format = "text"
	// FormatJSON is one JSON object per record
	FormatJSON Format = "json"
)

type config struct {
	level  slog.Level
	output io.Writer
	format Format
}

// Option configures a Logger built by New.
type Option func(*config)

// WithLevel sets the minimum level that is emitted.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets where records are written.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithFormat sets the record encoding.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithQuiet only lets warnings and errors through.
func WithQuiet() Option {
	return WithLevel(slog.LevelWarn)
}

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/config"
	"github.com/aki/mcprelay/internal/logger"
)

// RegisterLoggerFlags registers global logging flags
func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

// applyLoggerFlags lets explicitly set flags override the config file.
func applyLoggerFlags(cmd *cobra.Command, cfg *config.LogConfig) {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.Format = f.Value.String()
	}
}

// CreateLogger builds the diagnostic logger. Diagnostics go to stderr unless
// a log file is configured; the returned closer releases that file.
func CreateLogger(cfg config.LogConfig, stderr io.Writer) (logger.Logger, io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	out, closer := stderr, io.Closer(nopCloser{})
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	}

	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(out),
	)
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

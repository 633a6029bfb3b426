package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/child"
	"github.com/aki/mcprelay/internal/config"
	"github.com/aki/mcprelay/internal/logger"
	"github.com/aki/mcprelay/internal/relay"
	"github.com/aki/mcprelay/internal/status"
	"github.com/aki/mcprelay/internal/transcript"
)

// relayFlags are the settings every relaying command accepts. Set flags
// override the layered config files.
type relayFlags struct {
	configPath   string
	marker       string
	transcript   string
	statusFile   string
	injectArgs   []string
	passStderr   bool
	maxPending   int
	readyTimeout time.Duration
	drainTimeout time.Duration
}

func (f *relayFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Additional config file, applied after global and project config")
	pf.StringVar(&f.marker, "marker", "", "Readiness marker on child stdout (default \""+relay.DefaultMarker+"\")")
	pf.StringVar(&f.transcript, "transcript", "", "Append an IN/OUT/ERR transcript to this file")
	pf.StringVar(&f.statusFile, "status-file", "", "Write a YAML status snapshot to this file")
	pf.StringArrayVar(&f.injectArgs, "inject-arg", nil, "Argument appended to the child command (repeatable)")
	pf.BoolVar(&f.passStderr, "pass-stderr", false, "Forward every child stderr line")
	pf.IntVar(&f.maxPending, "max-pending", 0, "Cap on input held before readiness (0 = unbounded)")
	pf.DurationVar(&f.readyTimeout, "ready-timeout", 0, "Open the gate after this long without a marker (0 = wait)")
	pf.DurationVar(&f.drainTimeout, "drain-timeout", 0, "Bound on draining output after the child exits")
}

// loadConfig layers global, project and --config files, then set flags.
func loadConfig(cmd *cobra.Command, f *relayFlags, projectDir string) (*config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	cfg, err := config.NewLoader(home, projectDir).Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("marker") {
		cfg.Marker = f.marker
	}
	if changed("transcript") {
		cfg.Transcript = f.transcript
	}
	if changed("status-file") {
		cfg.StatusFile = f.statusFile
	}
	if changed("inject-arg") {
		cfg.InjectArgs = append(cfg.InjectArgs, f.injectArgs...)
	}
	if f.passStderr {
		cfg.Filter.Stderr = config.RuleConfig{PassAll: true}
	}
	if changed("max-pending") {
		cfg.Gate.MaxPending = f.maxPending
	}
	if changed("ready-timeout") {
		cfg.Gate.ReadyTimeout = config.Duration(f.readyTimeout)
	}
	if changed("drain-timeout") {
		cfg.DrainTimeout = config.Duration(f.drainTimeout)
	}
	applyLoggerFlags(cmd, &cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRelay(cmd *cobra.Command, f *relayFlags, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := loadConfig(cmd, f, cwd)
	if err != nil {
		return err
	}

	log, logCloser, err := CreateLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	return relayChild(cmd, cfg, log, child.Spec{
		Path:       args[0],
		Args:       args[1:],
		InjectArgs: cfg.InjectArgs,
	})
}

// relayChild starts spec and relays it with cmd's standard streams until it
// exits. A non-zero child exit is returned as *ExitError.
func relayChild(cmd *cobra.Command, cfg *config.Config, log logger.Logger, spec child.Spec) error {
	var (
		tr  *transcript.Transcript
		err error
	)
	if cfg.Transcript != "" {
		if tr, err = transcript.Open(cfg.Transcript); err != nil {
			return err
		}
		defer func() { _ = tr.Close() }()
	}

	proc, err := child.Start(spec)
	if err != nil {
		if tr != nil {
			_ = tr.Note("spawn failed: %v", err)
		}
		return err
	}
	defer func() { _ = proc.Close() }()

	log = log.With("run_id", proc.ID(), "pid", proc.PID())
	log.Info("child started", "command", spec.Argv())

	opts := relay.Options{
		Marker:       cfg.Marker,
		Filter:       cfg.RelayFilter(),
		MaxPending:   cfg.Gate.MaxPending,
		ReadyTimeout: time.Duration(cfg.Gate.ReadyTimeout),
		DrainTimeout: time.Duration(cfg.DrainTimeout),
		Stdin:        cmd.InOrStdin(),
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
		Logger:       log,
	}
	if tr != nil {
		opts.Recorder = tr
		_ = tr.Note("start run=%s pid=%d command=%q", proc.ID(), proc.PID(), spec.Argv())
	}
	if cfg.StatusFile != "" {
		rep := status.NewReporter(status.NewStore(), cfg.StatusFile, status.Status{
			RunID:   proc.ID(),
			PID:     proc.PID(),
			Command: spec.Argv(),
		}, log)
		defer rep.Close()
		opts.Observer = rep
	}

	r, err := relay.New(proc, opts)
	if err != nil {
		_ = proc.Kill()
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopSignals := forwardSignals(ctx, proc, cancel, log)
	defer stopSignals()

	code := r.Run(ctx)

	snap := r.Snapshot()
	if snap.InputDropped > 0 {
		log.Warn("input lines were dropped", "dropped", snap.InputDropped, "written", snap.InputWritten)
	}
	if tr != nil {
		_ = tr.Note("exit code=%d", code)
	}

	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// forwardSignals passes SIGINT and SIGTERM on to the child. A second signal
// cancels ctx so the relay stops the child and escalates to a kill.
func forwardSignals(ctx context.Context, proc *child.Process, cancel context.CancelFunc, log logger.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		forwarded := false
		for {
			select {
			case sig := <-sigCh:
				if forwarded {
					log.Warn("received second signal, stopping child", "signal", sig)
					cancel()
					continue
				}
				forwarded = true
				log.Info("forwarding signal", "signal", sig)
				if err := proc.Signal(sig); err != nil && !errors.Is(err, child.ErrAlreadyExited) {
					log.Warn("failed to forward signal", "signal", sig, "error", err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

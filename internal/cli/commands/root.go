// Package commands implements the mcprelay command line.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/cli/ui"
)

// ExitError carries the relayed child's exit status out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("child exited with code %d", e.Code)
}

// NewRootCommand builds the command tree. The root command itself runs the
// relay: everything from the executable onwards is passed to the child
// untouched, and unknown flags before it are appended to the child's
// arguments.
func NewRootCommand() *cobra.Command {
	flags := &relayFlags{}

	cmd := &cobra.Command{
		Use:   "mcprelay [flags] <executable> [args...]",
		Short: "Relay stdio to a child process, gated on its readiness",
		Long: `mcprelay starts a child process and relays its standard streams.

Input arriving before the child prints its readiness marker is held back and
released in order once the marker appears. Child output is filtered per
stream so only protocol records reach the caller.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		// Relay flags are split from the child command line by hand so
		// unknown flags can be handed to the child instead of rejected.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			argv, err := parseRelayArgs(cmd, args)
			if err != nil {
				return err
			}
			if help, _ := cmd.Flags().GetBool("help"); help {
				return cmd.Help()
			}
			if len(argv) == 0 {
				return errors.New("requires at least 1 arg(s), only received 0")
			}
			return runRelay(cmd, flags, argv)
		},
	}

	flags.register(cmd)
	RegisterLoggerFlags(cmd)

	cmd.AddCommand(
		newUnityCommand(flags),
		NewStatusCommand(),
		NewTailCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(NewRootCommand())
}

func run(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	ui.Error("%v", err)
	return 1
}

package commands

import (
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/cli/ui"
	"github.com/aki/mcprelay/internal/transcript"
)

// NewTailCommand prints and optionally follows a relay transcript.
func NewTailCommand() *cobra.Command {
	var (
		lines      int
		follow     bool
		directions string
	)

	cmd := &cobra.Command{
		Use:   "tail <transcript>",
		Short: "Show the end of a relay transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := transcript.ParseDirections(directions)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lines") {
				lines = terminalLines()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return transcript.Tail(ctx, args[0], transcript.TailOptions{
				Lines:        lines,
				Directions:   dirs,
				Follow:       follow,
				PollInterval: 250 * time.Millisecond,
				Format:       ui.FormatEntry,
				Writer:       ui.Stdout,
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of entries to show (default: terminal height)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&directions, "direction", "", "Only show these directions, e.g. IN,OUT")
	return cmd
}

// terminalLines sizes the initial output to the terminal, leaving room for
// the prompt.
func terminalLines() int {
	_, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || height < 10 {
		return 30
	}
	return height - 2
}

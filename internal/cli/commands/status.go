package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/cli/ui"
	"github.com/aki/mcprelay/internal/status"
)

// NewStatusCommand shows a status file written by a running or finished relay.
func NewStatusCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status <status-file>",
		Short: "Show the status file of a relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := ui.ParseFormat(format)
			if err != nil {
				return err
			}

			st, err := status.NewStore().Read(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to read status: %w", err)
			}

			if outFormat == ui.FormatJSON {
				return ui.OutputJSON(st)
			}
			ui.PrintStatus(st)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "pretty", "Output format (pretty, json)")
	return cmd
}

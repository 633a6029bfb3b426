package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aki/mcprelay/internal/cli/ui"
	"github.com/aki/mcprelay/internal/config"
)

// NewConfigCommand groups the config subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create mcprelay configuration",
	}
	cmd.AddCommand(newConfigShowCommand(), newConfigInitCommand(), newConfigValidateCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after layering defaults, the global file, the project file and --config.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := os.UserHomeDir()
			cwd, _ := os.Getwd()

			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.NewLoader(home, cwd).Load(path)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var global, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.Getwd()
			if global {
				base, err = os.UserHomeDir()
			}
			if err != nil {
				return fmt.Errorf("failed to resolve config directory: %w", err)
			}

			path := filepath.Join(base, config.DirName, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check config: %w", err)
			}

			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			ui.Success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Write to the home directory instead of the current project")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a configuration file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateFile(args[0]); err != nil {
				return err
			}
			ui.Success("%s is valid", args[0])
			return nil
		},
	}
}

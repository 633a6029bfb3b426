package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aki/mcprelay/internal/child"
	"github.com/aki/mcprelay/internal/logger"
	"github.com/aki/mcprelay/internal/unity"
)

// newUnityCommand relays the Unity editor matching a project's recorded
// version, located through Unity Hub. It shares the root's relay flags.
func newUnityCommand(f *relayFlags) *cobra.Command {
	var projectPath, hubPath string

	cmd := &cobra.Command{
		Use:   "unity --project-path DIR [editor args...]",
		Short: "Relay the Unity editor a project was created with",
		Long: `Resolve the editor version from ProjectSettings/ProjectVersion.txt, ask
Unity Hub where that version is installed, and relay the editor with
-projectPath DIR, the given editor arguments and the configured Unity
injection arguments (default: -mcp -logFile -).

Configuration is read from the project's .mcprelay directory rather than the
current one. Put editor arguments that start with a dash after "--".`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(projectPath)
			if err != nil {
				return fmt.Errorf("failed to resolve project path: %w", err)
			}

			cfg, err := loadConfig(cmd, f, dir)
			if err != nil {
				return err
			}

			log, logCloser, err := CreateLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = logCloser.Close() }()

			locator := &unity.Locator{HubPath: cfg.Unity.HubPath}
			if hubPath != "" {
				locator.HubPath = hubPath
			}
			editor, err := locator.EditorPath(logger.WithContext(cmd.Context(), log), dir)
			if err != nil {
				return err
			}

			inject := append([]string(nil), cfg.Unity.InjectArgs...)
			if cmd.Flags().Changed("inject-arg") {
				inject = append(inject, f.injectArgs...)
			}

			return relayChild(cmd, cfg, log, child.Spec{
				Path:       editor,
				Args:       append([]string{"-projectPath", dir}, args...),
				InjectArgs: inject,
				Dir:        dir,
			})
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&projectPath, "project-path", "", "Unity project directory")
	cmd.Flags().StringVar(&hubPath, "hub-path", "", "Unity Hub executable (default: platform install location)")
	_ = cmd.MarkFlagRequired("project-path")

	return cmd
}

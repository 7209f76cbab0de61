// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/internal/config"
	"github.com/showrefs/showrefs/internal/issue"
)

// newConfigCommand creates the `showrefs config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage showrefs configuration",
		Long: `Manage showrefs configuration.

Configuration is stored in:
  - Linux: ~/.config/showrefs/config.cue
  - macOS: ~/Library/Application Support/showrefs/config.cue
  - Windows: %APPDATA%\showrefs\config.cue

Every value can be overridden with a SHOWREFS_* environment variable,
e.g. SHOWREFS_OUTPUT_FORMAT=json, also read from a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
				ConfigFilePath: rootFlags.configPath,
				EnvFilePath:    rootFlags.envFile,
			})
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}

			source := SubtitleStyle.Render("(using defaults)")
			if path := app.Config.Path(); path != "" {
				source = path
			}
			fmt.Fprintf(app.stdout, "%s: %s\n\n", CmdStyle.Render("Config file"), source)
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(cmd, issue.WrapWithContext(err, "create configuration", ""), rootFlags.verbose)
			}
			fmt.Fprintf(app.stdout, "%s Configuration file: %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigFilePath()
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

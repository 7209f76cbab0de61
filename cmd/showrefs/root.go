// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	configPath string
	envFile    string
	verbose    bool
	color      string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootFlags := &rootFlagValues{}
	treeFlags := &treeFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "showrefs [root-module]",
		Short: "Show the reference graph of a module",
		Long: TitleStyle.Render("showrefs") + SubtitleStyle.Render(" - Show the reference graph of a module") + `

showrefs reads a module's declared references and prints the transitive
reference tree. References are found in the shared module cache first,
then next to the root module as <name>.dll or <name>.exe.

` + SubtitleStyle.Render("Examples:") + `
  showrefs ./bin/App.exe                    Print the reference tree
  showrefs ./bin/App.exe --reverse Core     Who references Core?
  showrefs info ./bin/App.exe Core          Details of one module
  showrefs serve ./bin/App.exe --watch      Serve live views over SSH`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runTree(cmd, app, rootFlags, treeFlags, args[0])
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/showrefs/config.cue)")
	pf.StringVar(&rootFlags.envFile, "env-file", "", "dotenv file with SHOWREFS_* overrides (default is ./.env when present)")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&rootFlags.color, "color", "", "when to color output: auto, always, never")
	bindTreeFlags(rootCmd, treeFlags)

	rootCmd.AddCommand(
		newTreeCommand(app, rootFlags),
		newInfoCommand(app, rootFlags),
		newReverseCommand(app, rootFlags),
		newOrderCommand(app, rootFlags),
		newServeCommand(app, rootFlags),
		newConfigCommand(app, rootFlags),
		newManifestCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}

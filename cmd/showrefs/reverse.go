// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/pkg/modref"
)

func newReverseCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var (
		noUI      bool
		expandAll bool
	)
	cmd := &cobra.Command{
		Use:   "reverse <root-module> [module]",
		Short: "Show which modules reference a module",
		Long: `Show the modules that reference a module, transitively.

Without a module name every module of the graph is listed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := app.setup(ctx, rootFlags)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}

			snap, err := e.session(nil).Load(ctx, args[0])
			if err != nil {
				return app.fail(cmd, loadFailure(err, args[0]), e.verbose)
			}

			r := e.renderer(app.stdout, noUI)
			if len(args) == 1 {
				fmt.Fprint(app.stdout, r.Names(snap.Reverse.Names()))
				return nil
			}

			name := modref.Name(args[1])
			out, err := r.Reverse(snap.Reverse, name, expandAll || e.cfg.Output.ExpandAll)
			if err != nil {
				return app.fail(cmd, notInGraph(name, args[0]), e.verbose)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noUI, "noui", false, "plain console output without styling")
	cmd.Flags().BoolVar(&expandAll, "all", false, "expand every occurrence of a module")
	return cmd
}

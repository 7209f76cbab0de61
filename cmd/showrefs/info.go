// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/pkg/modref"
)

func newInfoCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var noUI bool
	cmd := &cobra.Command{
		Use:   "info <root-module> [module]",
		Short: "Show details of a module in the graph",
		Long: `Show the location, version and attributes of a module.

Without a module name the root module is shown. A reference whose
requested version differs from the version found is flagged.`,
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

			name := snap.Graph.Root
			if len(args) == 2 {
				name = modref.Name(args[1])
			}
			node, ok := snap.Graph.Node(name)
			if !ok {
				return app.fail(cmd, notInGraph(name, args[0]), e.verbose)
			}
			fmt.Fprint(app.stdout, e.renderer(app.stdout, noUI).Info(node.Label, node.Module))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noUI, "noui", false, "plain console output without styling")
	return cmd
}

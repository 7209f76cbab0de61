// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/internal/dag"
)

func newOrderCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "order <root-module>",
		Short: "Print the modules in load order",
		Long: `Print every module of the graph after the modules it references.

A reference that closes a cycle is not honored. Modules that are ready at
the same time are printed by name.`,
		Args: cobra.ExactArgs(1),
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

			order, err := dag.LoadOrder(snap.Graph)
			if err != nil {
				return app.fail(cmd, err, e.verbose)
			}
			for i, name := range order {
				fmt.Fprintf(app.stdout, "%3d  %s\n", i+1, snap.Graph.Nodes[name].Label)
			}
			return nil
		},
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/internal/issue"
	"github.com/showrefs/showrefs/pkg/locator"
	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
)

// loadFailure describes a failed root load.
func loadFailure(err error, rootPath string) error {
	ec := issue.NewErrorContext().
		WithOperation("load root module").
		WithResource(rootPath).
		Wrap(err)

	switch {
	case errors.Is(err, metadata.ErrNotFound):
		ec.WithIssue(issue.RootNotFoundId).
			WithSuggestion("Check the path for typos; it must name a module file")
	case errors.Is(err, metadata.ErrUnreadable):
		ec.WithIssue(issue.RootUnreadableId).
			WithSuggestion(fmt.Sprintf("Add a manifest named %s%s next to the module", filepath.Base(rootPath), metadata.SidecarExt))
	case errors.Is(err, locator.ErrMalformedRoot):
		ec.WithIssue(issue.RootUnreadableId)
	}
	return ec.BuildError()
}

func notInGraph(name modref.Name, rootPath string) error {
	return issue.NewErrorContext().
		WithOperation("find module " + name.String()).
		WithResource(rootPath).
		WithIssue(issue.ModuleNotInGraphId).
		WithSuggestion("Module names are case-sensitive").
		BuildError()
}

// fail prints err, with its catalog entry when it has one, and returns an
// ExitError so cobra does not print it again.
func (a *App) fail(cmd *cobra.Command, err error, verbose bool) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if entry := ae.Issue(); entry != nil {
			if rendered, renderErr := entry.Render("dark"); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1, Err: err}
}

// formatErrorForDisplay uses ActionableError.Format when available, which
// adds suggestions and, in verbose mode, the error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

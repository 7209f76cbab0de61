// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
)

func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Work with module manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		version string
		refs    []string
		title   string
		company string
	)
	initCmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Print a manifest skeleton",
		Long: `Print a CUE manifest for a module.

Save it next to a binary module as <file>.cue, e.g. bin/App.exe.cue.`,
		Example: `  showrefs manifest init App --version 1.0.0.0 --ref Core@2.1.0.0 --ref Logging > bin/App.exe.cue`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := manifestSkeleton(args[0], version, refs, metadata.Attributes{Title: title, Company: company})
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}
			fmt.Fprint(app.stdout, text)
			return nil
		},
	}
	fs := initCmd.Flags()
	fs.StringVar(&version, "version", "1.0.0.0", "module version")
	fs.StringArrayVar(&refs, "ref", nil, "referenced module as `Name[@Version]` (repeatable)")
	fs.StringVar(&title, "title", "", "title attribute")
	fs.StringVar(&company, "company", "", "company attribute")

	manifestCmd.AddCommand(initCmd)
	return manifestCmd
}

// manifestSkeleton renders a manifest and checks it against the module
// schema before returning it.
func manifestSkeleton(name, version string, refs []string, attrs metadata.Attributes) (string, error) {
	mod := modref.New(name, version)
	if err := mod.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "name: %q\n", name)
	if version != "" {
		fmt.Fprintf(&sb, "version: %q\n", version)
	}

	if len(refs) > 0 {
		sb.WriteString("references: [\n")
		for _, r := range refs {
			refName, refVersion, _ := strings.Cut(r, "@")
			ref := modref.New(refName, refVersion)
			if err := ref.Validate(); err != nil {
				return "", fmt.Errorf("reference %q: %w", r, err)
			}
			if refVersion == "" {
				fmt.Fprintf(&sb, "\t{name: %q},\n", refName)
				continue
			}
			fmt.Fprintf(&sb, "\t{name: %q, version: %q},\n", refName, refVersion)
		}
		sb.WriteString("]\n")
	}

	if attrs.Title != "" || attrs.Company != "" {
		sb.WriteString("attributes: {\n")
		if attrs.Title != "" {
			fmt.Fprintf(&sb, "\ttitle: %q\n", attrs.Title)
		}
		if attrs.Company != "" {
			fmt.Fprintf(&sb, "\tcompany: %q\n", attrs.Company)
		}
		sb.WriteString("}\n")
	}

	text := sb.String()
	if _, err := metadata.NewManifestReader().Decode([]byte(text), name+metadata.SidecarExt); err != nil {
		return "", errors.Join(errors.New("generated manifest does not match the module schema"), err)
	}
	return text, nil
}

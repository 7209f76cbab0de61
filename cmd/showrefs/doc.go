// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for showrefs.
//
// The root command prints the reference tree of a module. Subcommands show
// module details, reverse references and a load order, serve the views
// over SSH, and manage configuration and manifests.
package cmd

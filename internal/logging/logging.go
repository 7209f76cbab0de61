// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process logger shared by showrefs components.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Prefix is the default prefix of every log line.
const Prefix = "showrefs"

// Options configures New.
type Options struct {
	// Verbose lowers the level to Debug. The default level is Warn.
	Verbose bool
	// Prefix overrides the default prefix.
	Prefix string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger writing to opts.Output.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = Prefix
	}

	level := log.WarnLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(out, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: opts.Verbose,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component returns a child logger whose prefix names a subsystem,
// e.g. "showrefs/watch".
func Component(parent *log.Logger, name string) *log.Logger {
	if parent == nil {
		return Discard()
	}
	child := parent.With()
	child.SetPrefix(parent.GetPrefix() + "/" + name)
	return child
}

// SPDX-License-Identifier: MPL-2.0

package sshview

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/muesli/termenv"

	"github.com/showrefs/showrefs/internal/render"
	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

const usage = `Commands:
  tree [--all]      dependency tree of the root module (default)
  oneline           one line per module with its direct references
  reverse <name>    modules that reference <name>
  info <name>       details of one module
  stats             graph size and load time
  help              this text
`

// Exec runs one view command against snap and returns the exit status.
// Views go to out, diagnostics to errOut.
func Exec(out, errOut io.Writer, r *render.Renderer, snap *refgraph.Snapshot, args []string, expandAll bool) int {
	if snap == nil {
		fmt.Fprintln(errOut, "no graph loaded")
		return 1
	}

	cmd := "tree"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if slices.Contains(args, "--all") {
		expandAll = true
		args = slices.DeleteFunc(slices.Clone(args), func(a string) bool { return a == "--all" })
	}

	switch cmd {
	case "tree":
		root, err := snap.Tree(refgraph.TreeOptions{ExpandAll: expandAll})
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprint(out, r.Tree(root))
	case "oneline":
		fmt.Fprint(out, r.OneLine(snap.Graph))
	case "reverse":
		name, ok := oneName(errOut, cmd, args)
		if !ok {
			return 2
		}
		view, err := r.Reverse(snap.Reverse, name, expandAll)
		if err != nil {
			fmt.Fprintf(errOut, "module %q is not in the graph\n", name)
			return 1
		}
		fmt.Fprint(out, view)
	case "info":
		name, ok := oneName(errOut, cmd, args)
		if !ok {
			return 2
		}
		node, found := snap.Graph.Node(name)
		if !found {
			fmt.Fprintf(errOut, "module %q is not in the graph\n", name)
			return 1
		}
		fmt.Fprint(out, r.Info(node.Label, node.Module))
	case "stats":
		fmt.Fprint(out, r.Stats(snap))
	case "help":
		fmt.Fprint(out, usage)
	default:
		fmt.Fprintf(errOut, "unknown command %q\n\n%s", cmd, usage)
		return 1
	}
	return 0
}

func oneName(errOut io.Writer, cmd string, args []string) (modref.Name, bool) {
	if len(args) != 1 {
		fmt.Fprintf(errOut, "usage: %s <name>\n", cmd)
		return "", false
	}
	return modref.Name(args[0]), true
}

// viewMiddleware answers every session with one view of the current
// snapshot. Sessions with a terminal get styled output.
func (s *Server) viewMiddleware() wish.Middleware {
	return func(ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			opts := render.Options{Plain: true}
			if _, _, isPty := sess.Pty(); isPty {
				lr := lipgloss.NewRenderer(sess)
				lr.SetColorProfile(termenv.ANSI256)
				opts = render.Options{Renderer: lr}
			}

			code := Exec(sess, sess.Stderr(), render.New(opts), s.source.Current(), sess.Command(), s.cfg.ExpandAll)
			s.logger.Debug("SSH view served", "user", sess.User(), "command", sess.Command(), "exit", code)
			_ = sess.Exit(code) //nolint:errcheck // Terminal operation; error non-critical
		}
	}
}

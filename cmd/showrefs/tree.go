// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/internal/config"
	"github.com/showrefs/showrefs/internal/export"
	"github.com/showrefs/showrefs/internal/issue"
	"github.com/showrefs/showrefs/internal/logging"
	"github.com/showrefs/showrefs/internal/render"
	"github.com/showrefs/showrefs/internal/watch"
	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

type (
	// treeFlagValues holds the flags of the tree view.
	treeFlagValues struct {
		noUI      bool
		oneline   bool
		expandAll bool
		reverse   string
		format    string
		depth     int
		stats     bool
		watch     bool
	}

	// treeView is one resolved set of tree flags, reused for every reprint
	// in watch mode.
	treeView struct {
		format    config.OutputFormat
		expandAll bool
		oneline   bool
		reverse   modref.Name
		depth     int
		stats     bool
		renderer  *render.Renderer
	}
)

func bindTreeFlags(cmd *cobra.Command, f *treeFlagValues) {
	fs := cmd.Flags()
	fs.BoolVar(&f.noUI, "noui", false, "plain console output without styling")
	fs.BoolVar(&f.oneline, "oneline", false, "one line per module with its direct references")
	fs.BoolVar(&f.expandAll, "all", false, "expand the references of every occurrence of a module")
	fs.StringVar(&f.reverse, "reverse", "", "print the modules that reference `name`")
	fs.StringVarP(&f.format, "format", "f", "", "output format: text, json, yaml, toml")
	fs.IntVar(&f.depth, "depth", 0, "limit the tree depth (0 = unlimited)")
	fs.BoolVar(&f.stats, "stats", false, "print graph statistics after the view")
	fs.BoolVarP(&f.watch, "watch", "w", false, "reprint when module files change")
}

func newTreeCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &treeFlagValues{}
	cmd := &cobra.Command{
		Use:   "tree <root-module>",
		Short: "Print the reference tree of a module (default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, app, rootFlags, flags, args[0])
		},
	}
	bindTreeFlags(cmd, flags)
	return cmd
}

func runTree(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *treeFlagValues, rootPath string) error {
	ctx := cmd.Context()
	e, err := app.setup(ctx, rootFlags)
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}

	view, err := newTreeView(e, flags, app.stdout)
	if err != nil {
		return app.fail(cmd, err, e.verbose)
	}

	session := e.session(nil)
	snap, err := session.Load(ctx, rootPath)
	if err != nil {
		return app.fail(cmd, loadFailure(err, rootPath), e.verbose)
	}
	if err := view.write(app.stdout, snap); err != nil {
		return app.fail(cmd, err, e.verbose)
	}

	if !flags.watch {
		return nil
	}
	if err := app.watchSession(ctx, e, session, func(s *refgraph.Snapshot) error {
		return view.write(app.stdout, s)
	}); err != nil {
		return app.fail(cmd, err, e.verbose)
	}
	return nil
}

func newTreeView(e *env, flags *treeFlagValues, w io.Writer) (*treeView, error) {
	format := e.cfg.Output.Format
	if flags.format != "" {
		format = config.OutputFormat(flags.format)
	}
	if valid, errs := format.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("select output format").
			WithIssue(issue.InvalidOutputFormatId).
			Wrap(errs[0]).
			BuildError()
	}

	return &treeView{
		format:    format,
		expandAll: flags.expandAll || e.cfg.Output.ExpandAll,
		oneline:   flags.oneline,
		reverse:   modref.Name(flags.reverse),
		depth:     flags.depth,
		stats:     flags.stats,
		renderer:  e.renderer(w, flags.noUI),
	}, nil
}

func (v *treeView) write(w io.Writer, snap *refgraph.Snapshot) error {
	if v.format != config.FormatText {
		return export.Write(w, v.format, snap)
	}

	r := v.renderer
	switch {
	case v.reverse != "":
		out, err := r.Reverse(snap.Reverse, v.reverse, v.expandAll)
		if err != nil {
			return notInGraph(v.reverse, snap.RootPath)
		}
		fmt.Fprint(w, out)
	case v.oneline:
		fmt.Fprint(w, r.OneLine(snap.Graph))
	default:
		root, err := snap.Tree(refgraph.TreeOptions{ExpandAll: v.expandAll, MaxDepth: v.depth})
		if err != nil {
			return err
		}
		fmt.Fprint(w, r.Tree(root))
	}

	if v.stats {
		fmt.Fprint(w, r.Stats(snap))
	}
	return nil
}

// watchSession reloads session whenever module files under the root
// directory or the shared cache change, and hands each new snapshot to
// publish. It blocks until ctx is done.
func (a *App) watchSession(ctx context.Context, e *env, session *refgraph.Session, publish func(*refgraph.Snapshot) error) error {
	cur := session.Current()
	rootDir := filepath.Dir(cur.RootPath)
	if abs, err := filepath.Abs(cur.RootPath); err == nil {
		rootDir = filepath.Dir(abs)
	}
	dirs := []string{rootDir}
	if e.cacheDir != "" {
		dirs = append(dirs, e.cacheDir)
	}

	reload := watch.Reloader(session, func(s *refgraph.Snapshot) {
		fmt.Fprintf(a.stdout, "\n%s Reloaded (%d modules)\n\n", VerboseHighlightStyle.Render("→"), s.Graph.Len())
		if err := publish(s); err != nil {
			fmt.Fprintf(a.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, e.verbose))
		}
	})

	w, err := watch.New(watch.Config{
		Dirs:     dirs,
		Patterns: watch.ModulePatterns(e.cfg.Extensions),
		Debounce: e.cfg.Watch.Debounce,
		Logger:   logging.Component(e.logger, "watch"),
		OnChange: func(ctx context.Context, changed []string) error {
			if err := reload(ctx, changed); err != nil {
				fmt.Fprintf(a.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, e.verbose))
			}
			return nil
		},
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("start watcher").
			WithResource(rootDir).
			WithIssue(issue.WatchFailedId).
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(a.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n", VerboseHighlightStyle.Render("→"))
	if err := w.Run(ctx); err != nil {
		return issue.NewErrorContext().
			WithOperation("watch module files").
			WithIssue(issue.WatchFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}

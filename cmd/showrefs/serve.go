// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/showrefs/showrefs/internal/issue"
	"github.com/showrefs/showrefs/internal/logging"
	"github.com/showrefs/showrefs/internal/metrics"
	"github.com/showrefs/showrefs/internal/sshview"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

type serveFlagValues struct {
	host        string
	port        int
	token       string
	hostKey     string
	metricsAddr string
	expandAll   bool
	watch       bool
}

func newServeCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &serveFlagValues{}
	cmd := &cobra.Command{
		Use:   "serve <root-module>",
		Short: "Serve read-only graph views over SSH",
		Long: `Serve read-only views of the module graph over SSH.

Clients log in with the printed token as password and pass the view as
the SSH command: tree, oneline, reverse <name>, info <name> or stats.

With --metrics-addr, Prometheus metrics about loads and resolutions are
exposed at /metrics.`,
		Example: `  showrefs serve ./bin/App.exe --port 2222 --watch
  ssh -p 2222 viewer@localhost reverse Core`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app, rootFlags, flags, args[0])
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.host, "host", "", "address to listen on (default from config, 127.0.0.1)")
	fs.IntVar(&flags.port, "port", -1, "port to listen on (default from config, 2222; 0 picks a free port)")
	fs.StringVar(&flags.token, "token", "", "login password (default: random)")
	fs.StringVar(&flags.hostKey, "host-key", "", "host key file, created when missing (default: ephemeral key)")
	fs.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&flags.expandAll, "all", false, "expand every occurrence of a module in tree views")
	fs.BoolVarP(&flags.watch, "watch", "w", false, "reload the graph when module files change")
	return cmd
}

func runServe(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *serveFlagValues, rootPath string) error {
	ctx := cmd.Context()
	e, err := app.setup(ctx, rootFlags)
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}

	recorder := metrics.New()
	session := e.session(recorder)
	if _, err := session.Load(ctx, rootPath); err != nil {
		return app.fail(cmd, loadFailure(err, rootPath), e.verbose)
	}

	cfg := sshview.DefaultConfig()
	cfg.Host = sshview.HostAddress(e.cfg.Serve.Host)
	cfg.Port = sshview.ListenPort(e.cfg.Serve.Port)
	if flags.host != "" {
		cfg.Host = sshview.HostAddress(flags.host)
	}
	if flags.port >= 0 {
		cfg.Port = sshview.ListenPort(flags.port)
	}
	cfg.Token = flags.token
	cfg.HostKeyPath = flags.hostKey
	cfg.ExpandAll = flags.expandAll || e.cfg.Output.ExpandAll

	srv, err := sshview.New(cfg, session, sshview.WithLogger(logging.Component(e.logger, "ssh")))
	if err != nil {
		return app.fail(cmd, err, e.verbose)
	}
	if err := srv.Start(ctx); err != nil {
		return app.fail(cmd, issue.NewErrorContext().
			WithOperation("start SSH view server").
			WithIssue(issue.ServerStartFailedId).
			Wrap(err).
			BuildError(), e.verbose)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			e.logger.Warn("SSH view server shutdown", "error", err)
		}
	}()

	fmt.Fprintf(app.stdout, "%s SSH views on %s\n", VerboseHighlightStyle.Render("→"), CmdStyle.Render(srv.Address()))
	fmt.Fprintf(app.stdout, "  ssh -p %d viewer@%s   password: %s\n", srv.Port(), srv.Host(), srv.Token())

	metricsAddr := flags.metricsAddr
	if metricsAddr == "" {
		metricsAddr = e.cfg.Serve.MetricsAddr
	}
	if metricsAddr != "" {
		stop, addr, err := serveMetrics(ctx, metricsAddr, recorder, logging.Component(e.logger, "metrics"))
		if err != nil {
			return app.fail(cmd, err, e.verbose)
		}
		defer stop()
		fmt.Fprintf(app.stdout, "%s Metrics on http://%s/metrics\n", VerboseHighlightStyle.Render("→"), addr)
	}

	if flags.watch {
		watchErr := make(chan error, 1)
		go func() {
			watchErr <- app.watchSession(ctx, e, session, func(*refgraph.Snapshot) error { return nil })
		}()
		select {
		case err := <-watchErr:
			if err != nil {
				return app.fail(cmd, err, e.verbose)
			}
			return nil
		case err := <-srv.Err():
			return app.failServer(cmd, err, e.verbose)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-srv.Err():
		return app.failServer(cmd, err, e.verbose)
	}
}

// failServer reports a server that stopped on its own. A closed error
// channel without an error means a clean stop.
func (a *App) failServer(cmd *cobra.Command, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	return a.fail(cmd, fmt.Errorf("SSH view server: %w", err), verbose)
}

// serveMetrics starts an HTTP listener for the recorder's /metrics and
// returns a function that shuts it down.
func serveMetrics(ctx context.Context, addr string, recorder *metrics.Recorder, logger *log.Logger) (func(), string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}
	return startHTTP(ln, recorder.Mux(), logger), ln.Addr().String(), nil
}

// startHTTP serves handler on ln until the returned stop function is
// called. A server that fails on its own is logged; the SSH views keep
// running without it. stop waits for the serving goroutine to exit.
func startHTTP(ln net.Listener, handler http.Handler, logger *log.Logger) (stop func()) {
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics endpoint stopped", "addr", ln.Addr().String(), "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics endpoint shutdown", "error", err)
		}
		<-done
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/showrefs/showrefs/internal/config"
	"github.com/showrefs/showrefs/internal/logging"
	"github.com/showrefs/showrefs/internal/render"
	"github.com/showrefs/showrefs/pkg/locator"
	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and writes through its streams.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// env is what a command works with once configuration is loaded.
	env struct {
		cfg      *config.Config
		verbose  bool
		logger   *log.Logger
		locator  *locator.Locator
		cacheDir string
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// setup loads configuration, applies global flag overrides and builds the
// module locator.
func (a *App) setup(ctx context.Context, flags *rootFlagValues) (*env, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		EnvFilePath:    flags.envFile,
	})
	if err != nil {
		return nil, err
	}

	if flags.color != "" {
		mode := config.ColorMode(flags.color)
		if valid, errs := mode.IsValid(); !valid {
			return nil, errs[0]
		}
		cfg.UI.Color = mode
	}

	e := &env{cfg: cfg, verbose: flags.verbose || cfg.UI.Verbose}
	e.logger = logging.New(logging.Options{Verbose: e.verbose, Output: a.stderr})

	reader, err := metadata.NewCachingReader(metadata.NewManifestReader(), cfg.Metadata.CacheSize)
	if err != nil {
		return nil, err
	}

	opts := []locator.Option{
		locator.WithExtensions(cfg.Extensions...),
		locator.WithLogger(logging.Component(e.logger, "locator")),
	}
	if cfg.SharedCache.Enabled {
		dir := cfg.SharedCache.Path
		if dir == "" {
			if dir, err = locator.GetDefaultCacheDir(); err != nil {
				e.logger.Warn("Shared cache disabled", "error", err)
			}
		}
		if dir != "" {
			e.cacheDir = dir
			opts = append(opts, locator.WithSharedCache(locator.NewDirCache(dir, cfg.Extensions)))
		}
	}
	e.locator = locator.New(reader, opts...)

	e.logger.Debug("Configuration loaded", "file", a.Config.Path(), "shared_cache", e.cacheDir)
	return e, nil
}

// session creates a Session over the env's locator. observer may be nil.
func (e *env) session(observer refgraph.Observer) *refgraph.Session {
	opts := []refgraph.BuilderOption{refgraph.WithLogger(logging.Component(e.logger, "graph"))}
	if observer != nil {
		opts = append(opts, refgraph.WithObserver(observer))
	}
	return refgraph.NewSession(e.locator, opts...)
}

// renderer returns a Renderer for w honoring the color mode. plain drops
// styling and box drawing entirely.
func (e *env) renderer(w io.Writer, plain bool) *render.Renderer {
	if plain {
		return render.New(render.Options{Plain: true})
	}
	lr := lipgloss.NewRenderer(w)
	switch e.cfg.UI.Color {
	case config.ColorAlways:
		lr.SetColorProfile(termenv.ANSI256)
	case config.ColorNever:
		lr.SetColorProfile(termenv.Ascii)
	}
	return render.New(render.Options{Renderer: lr})
}

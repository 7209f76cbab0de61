// SPDX-License-Identifier: MPL-2.0

// Package locator resolves module references to module files.
//
// A reference is looked up in the shared cache first; on a miss, the
// directory of the root module is probed for <name><ext> with each
// configured extension in order. A reference that no strategy can load
// resolves to a module without metadata rather than an error.
package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

// ErrMalformedRoot is returned when the root path does not name a loadable
// module or its metadata cannot be read.
var ErrMalformedRoot = errors.New("malformed root module")

var _ refgraph.Opener = (*Locator)(nil)

type (
	// Locator holds the resolution strategies shared by every root load.
	Locator struct {
		reader     metadata.Reader
		cache      SharedCache
		extensions []string
		logger     *log.Logger
	}

	// Option configures a Locator.
	Option func(*Locator)

	// Scope resolves references relative to one root module. It carries
	// the per-load root directory and is discarded with the load.
	Scope struct {
		locator  *Locator
		rootPath string
		rootDir  string
	}

	// RootError describes why the root module could not be loaded.
	RootError struct {
		Path  string
		Cause error
	}
)

// DefaultExtensions returns the file extensions probed in the root
// directory, in order: the library extension first, then the executable one.
func DefaultExtensions() []string {
	return []string{".dll", ".exe"}
}

// WithSharedCache sets the shared cache tier. The default is NoCache.
func WithSharedCache(cache SharedCache) Option {
	return func(l *Locator) {
		if cache != nil {
			l.cache = cache
		}
	}
}

// WithExtensions sets the extensions probed in the root directory.
func WithExtensions(extensions ...string) Option {
	return func(l *Locator) {
		if len(extensions) > 0 {
			l.extensions = slices.Clone(extensions)
		}
	}
}

// WithLogger sets the logger for resolution diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Locator that reads module metadata with reader.
func New(reader metadata.Reader, opts ...Option) *Locator {
	l := &Locator{
		reader:     reader,
		cache:      NoCache,
		extensions: DefaultExtensions(),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Extensions returns the extensions probed in the root directory.
func (l *Locator) Extensions() []string {
	return slices.Clone(l.extensions)
}

// Scope returns a resolution scope for the root module at rootPath.
func (l *Locator) Scope(rootPath string) *Scope {
	s := &Scope{locator: l, rootPath: rootPath}
	if rootPath == "" {
		return s
	}
	if abs, err := filepath.Abs(rootPath); err == nil {
		s.rootPath = abs
	}
	s.rootDir = filepath.Dir(s.rootPath)
	return s
}

// Open implements refgraph.Opener.
func (l *Locator) Open(ctx context.Context, rootPath string) (refgraph.Resolver, *refgraph.ResolvedModule, error) {
	scope := l.Scope(rootPath)
	root, err := scope.ResolveRoot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return scope, root, nil
}

// RootDir returns the directory probed for local modules.
func (s *Scope) RootDir() string { return s.rootDir }

// ResolveRoot reads the root module. The root is always a local module.
func (s *Scope) ResolveRoot(ctx context.Context) (*refgraph.ResolvedModule, error) {
	if s.rootPath == "" {
		return nil, &RootError{Path: s.rootPath, Cause: errors.New("no root module given")}
	}

	meta, err := s.locator.reader.Read(ctx, s.rootPath)
	if err != nil {
		return nil, &RootError{Path: s.rootPath, Cause: err}
	}

	return &refgraph.ResolvedModule{
		Reference:            meta.Reference(),
		Location:             s.rootPath,
		Metadata:             meta,
		DeclaredDependencies: meta.References,
	}, nil
}

// Resolve implements refgraph.Resolver.
func (s *Scope) Resolve(ctx context.Context, ref modref.Reference) *refgraph.ResolvedModule {
	if err := ref.Validate(); err != nil {
		s.locator.logger.Debug("Skipping invalid reference", "reference", ref, "error", err)
		return refgraph.Unresolved(ref)
	}

	if mod, ok := s.resolveShared(ctx, ref); ok {
		return mod
	}
	if mod, ok := s.resolveLocal(ctx, ref); ok {
		return mod
	}
	return refgraph.Unresolved(ref)
}

func (s *Scope) resolveShared(ctx context.Context, ref modref.Reference) (*refgraph.ResolvedModule, bool) {
	path, ok := s.locator.cache.Lookup(ctx, ref)
	if !ok {
		return nil, false
	}

	meta, err := s.locator.reader.Read(ctx, path)
	if err != nil {
		s.locator.logger.Debug("Shared module not loadable", "module", ref.Name, "path", path, "error", err)
		return nil, false
	}

	return &refgraph.ResolvedModule{
		Reference: ref,
		Location:  path,
		IsShared:  true,
		Metadata:  meta,
	}, true
}

func (s *Scope) resolveLocal(ctx context.Context, ref modref.Reference) (*refgraph.ResolvedModule, bool) {
	for _, ext := range s.locator.extensions {
		path := filepath.Join(s.rootDir, string(ref.Name)+ext)
		meta, err := s.locator.reader.Read(ctx, path)
		if err != nil {
			if !errors.Is(err, metadata.ErrNotFound) {
				s.locator.logger.Debug("Module candidate not loadable", "module", ref.Name, "path", path, "error", err)
			}
			continue
		}

		return &refgraph.ResolvedModule{
			Reference:            ref,
			Location:             path,
			Metadata:             meta,
			DeclaredDependencies: meta.References,
		}, true
	}
	return nil, false
}

// Error implements the error interface.
func (e *RootError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedRoot, e.Path, e.Cause)
}

// Unwrap exposes ErrMalformedRoot and the cause to errors.Is/As.
func (e *RootError) Unwrap() []error {
	return []error{ErrMalformedRoot, e.Cause}
}

// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoRoot is returned by Session.Reload before any root has been loaded.
var ErrNoRoot = errors.New("no root module loaded")

type (
	// Snapshot is the complete, immutable result of one root load.
	Snapshot struct {
		// ID identifies the load in logs and exports.
		ID       uuid.UUID
		RootPath string
		Root     *ResolvedModule
		Graph    *Graph
		Reverse  ReverseIndex
		LoadedAt time.Time
		Elapsed  time.Duration
	}

	// Session owns the current Snapshot. A load builds a new snapshot from
	// scratch and publishes it only when the whole load succeeds, so a
	// failed load leaves the previous snapshot in place. Loads are
	// serialized; Current may be called concurrently with a load.
	Session struct {
		opener Opener
		config builderConfig

		loadMu sync.Mutex

		mu      sync.RWMutex
		current *Snapshot
	}
)

// NewSession creates a Session that opens roots through opener and builds
// graphs with the given options.
func NewSession(opener Opener, opts ...BuilderOption) *Session {
	return &Session{
		opener: opener,
		config: newBuilderConfig(opts),
	}
}

// Load resolves and builds the graph for the root module at rootPath and
// makes it current.
func (s *Session) Load(ctx context.Context, rootPath string) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	snap, err := s.build(ctx, rootPath)
	if s.config.observer != nil {
		s.config.observer.ObserveLoad(err)
	}
	if err != nil {
		s.config.logger.Warn("Load failed, keeping previous graph", "root", rootPath, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.config.logger.Info("Loaded module graph", "id", snap.ID, "root", snap.Root.Reference.Name, "modules", snap.Graph.Len())
	return snap, nil
}

// Reload loads the current root path again.
func (s *Session) Reload(ctx context.Context) (*Snapshot, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoRoot
	}
	return s.Load(ctx, cur.RootPath)
}

// Current returns the published snapshot, or nil before the first
// successful load.
func (s *Session) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) build(ctx context.Context, rootPath string) (*Snapshot, error) {
	start := time.Now()

	resolver, root, err := s.opener.Open(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	graph, err := (&Builder{builderConfig: s.config, resolver: resolver}).Build(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("build graph for %s: %w", rootPath, err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate load id: %w", err)
	}

	reverse := BuildReverseIndex(graph.Adjacency)
	reverse.ApplyLabels(graph)

	return &Snapshot{
		ID:       id,
		RootPath: rootPath,
		Root:     root,
		Graph:    graph,
		Reverse:  reverse,
		LoadedAt: start,
		Elapsed:  time.Since(start),
	}, nil
}

// Tree is shorthand for s.Graph.Tree(opts).
func (s *Snapshot) Tree(opts TreeOptions) (*GraphNode, error) {
	return s.Graph.Tree(opts)
}

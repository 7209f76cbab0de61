// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/showrefs/showrefs/pkg/modref"
)

type (
	// Builder walks declared references from a root module and produces a
	// deduplicated Graph. A Builder holds no per-build state and may be
	// reused; every Build call starts from an empty arena.
	Builder struct {
		builderConfig
		resolver Resolver
	}

	// builderConfig is the part of a Builder set by options. Sessions keep
	// one to configure the Builder of every load.
	builderConfig struct {
		logger   *log.Logger
		observer Observer
	}

	// BuilderOption configures a Builder.
	BuilderOption func(*builderConfig)

	// Observer receives build events. Implementations must be safe for
	// concurrent use when shared between sessions.
	Observer interface {
		ObserveResolution(outcome Outcome)
		ObserveBuild(g *Graph, elapsed time.Duration)
		ObserveLoad(err error)
	}

	// buildState is the context object threaded through one build.
	buildState struct {
		graph *Graph
		// visiting holds the names on the current resolution path.
		visiting map[modref.Name]bool
		// expanded holds the names whose dependencies have been walked.
		expanded map[modref.Name]bool
	}
)

// WithLogger sets the logger used for per-resolution debug output.
func WithLogger(logger *log.Logger) BuilderOption {
	return func(b *builderConfig) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithObserver registers an Observer for build events.
func WithObserver(observer Observer) BuilderOption {
	return func(b *builderConfig) {
		b.observer = observer
	}
}

// NewBuilder creates a Builder resolving references through resolver.
func NewBuilder(resolver Resolver, opts ...BuilderOption) *Builder {
	return &Builder{builderConfig: newBuilderConfig(opts), resolver: resolver}
}

func newBuilderConfig(opts []BuilderOption) builderConfig {
	cfg := builderConfig{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Build resolves the transitive closure of root's declared references.
//
// Each distinct name is resolved at most once. A node is inserted into the
// arena and marked as visiting before its dependencies are walked, so a
// reference back to any module on the current path is recorded as a cycle
// edge instead of being followed. Build checks ctx between resolutions.
func (b *Builder) Build(ctx context.Context, root *ResolvedModule) (*Graph, error) {
	if !root.Available() {
		return nil, &InvariantError{Name: rootName(root), Reason: "root module has no metadata"}
	}

	start := time.Now()
	st := newBuildState(root.Reference.Name)
	b.observeResolution(root)

	if err := b.visit(ctx, st, root.Reference.Name, root); err != nil {
		return nil, err
	}
	if err := st.graph.Validate(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	b.logger.Debug("Built module graph", "root", root.Reference.Name, "modules", st.graph.Len(), "edges", st.graph.EdgeCount(), "elapsed", elapsed)
	if b.observer != nil {
		b.observer.ObserveBuild(st.graph, elapsed)
	}
	return st.graph, nil
}

func (b *Builder) visit(ctx context.Context, st *buildState, name modref.Name, mod *ResolvedModule) error {
	node := st.insert(name, mod)

	st.visiting[name] = true
	defer delete(st.visiting, name)

	deps := st.expand(node)
	for _, dep := range deps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if st.visiting[dep.Name] {
			node.Cycle = append(node.Cycle, dep.Name)
			b.logger.Debug("Cycle detected", "module", name, "reference", dep.Name)
			continue
		}
		if _, done := st.graph.Nodes[dep.Name]; done {
			continue
		}

		child := b.resolve(ctx, dep)
		if err := b.visit(ctx, st, dep.Name, child); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) resolve(ctx context.Context, ref modref.Reference) *ResolvedModule {
	mod := b.resolver.Resolve(ctx, ref)
	if mod == nil {
		mod = Unresolved(ref)
	}
	b.observeResolution(mod)
	b.logger.Debug("Resolved module", "module", ref.Name, "outcome", mod.Outcome(), "location", mod.Location)
	return mod
}

func (b *Builder) observeResolution(mod *ResolvedModule) {
	if b.observer != nil {
		b.observer.ObserveResolution(mod.Outcome())
	}
}

func newBuildState(root modref.Name) *buildState {
	g := newGraph()
	g.Root = root
	return &buildState{
		graph:    g,
		visiting: make(map[modref.Name]bool),
		expanded: make(map[modref.Name]bool),
	}
}

// insert adds the canonical node for name to the arena.
func (st *buildState) insert(name modref.Name, mod *ResolvedModule) *Node {
	node := &Node{Name: name, Label: Label(name, mod), Module: mod}
	st.graph.Nodes[name] = node
	st.graph.Order = append(st.graph.Order, name)
	return node
}

// expand records the adjacency of node and returns its dependencies sorted
// by name. Terminal modules expand to nothing.
func (st *buildState) expand(node *Node) []modref.Reference {
	var deps []modref.Reference
	if !node.Module.Terminal() {
		deps = modref.Sorted(node.Module.DeclaredDependencies)
	}

	names := make([]modref.Name, len(deps))
	for i, dep := range deps {
		names[i] = dep.Name
	}
	node.Children = names
	st.graph.Adjacency[node.Name] = slices.Clone(names)
	st.expanded[node.Name] = true
	return deps
}

func rootName(root *ResolvedModule) modref.Name {
	if root == nil {
		return ""
	}
	return root.Reference.Name
}

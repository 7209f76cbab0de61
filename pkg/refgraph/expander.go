// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"context"

	"github.com/showrefs/showrefs/pkg/modref"
)

// Expander resolves a graph one level at a time. It applies the same
// deduplication and labeling as Build: a name is resolved once and every
// later reference reuses its node. Cycle edges are classified over the part
// expanded so far; once every module is expanded they match Build's. An
// Expander is not safe for concurrent use.
type Expander struct {
	builder *Builder
	state   *buildState
}

// Lazy returns an Expander whose graph initially holds only root.
func (b *Builder) Lazy(_ context.Context, root *ResolvedModule) (*Expander, error) {
	if !root.Available() {
		return nil, &InvariantError{Name: rootName(root), Reason: "root module has no metadata"}
	}

	st := newBuildState(root.Reference.Name)
	b.observeResolution(root)
	node := st.insert(root.Reference.Name, root)
	if node.Module.Terminal() {
		st.expand(node)
	}
	return &Expander{builder: b, state: st}, nil
}

// Root returns the root node.
func (e *Expander) Root() *Node {
	return e.state.graph.Nodes[e.state.graph.Root]
}

// Expanded reports whether the dependencies of name have been resolved.
func (e *Expander) Expanded(name modref.Name) bool {
	return e.state.expanded[name]
}

// Children resolves the direct dependencies of name, if not done yet, and
// returns their nodes in ascending name order. name must already be known
// to the expander, either as the root or as a previously returned child.
func (e *Expander) Children(ctx context.Context, name modref.Name) ([]*Node, error) {
	st := e.state
	node, ok := st.graph.Nodes[name]
	if !ok {
		return nil, &InvariantError{Name: name, Reason: "expanded before being resolved"}
	}

	if !st.expanded[name] {
		for _, dep := range st.expand(node) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, done := st.graph.Nodes[dep.Name]; done {
				continue
			}
			child := st.insert(dep.Name, e.builder.resolve(ctx, dep))
			if child.Module.Terminal() {
				st.expand(child)
			}
		}
		st.graph.markCycleEdges()
	}

	children := make([]*Node, 0, len(node.Children))
	for _, c := range node.Children {
		children = append(children, st.graph.Nodes[c])
	}
	return children, nil
}

// ExpandAll expands every reachable module, breadth first.
func (e *Expander) ExpandAll(ctx context.Context) error {
	queue := []modref.Name{e.state.graph.Root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if e.Expanded(name) {
			continue
		}
		children, err := e.Children(ctx, name)
		if err != nil {
			return err
		}
		for _, c := range children {
			if !e.Expanded(c.Name) {
				queue = append(queue, c.Name)
			}
		}
	}
	return nil
}

// Graph returns the graph resolved so far. It is live: later expansion
// mutates it. Modules that are not expanded yet have no Adjacency entry.
func (e *Expander) Graph() *Graph {
	return e.state.graph
}

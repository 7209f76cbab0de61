// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/showrefs/showrefs/pkg/modref"
)

// ErrInvariant is wrapped by InvariantError. It signals a defect in graph
// construction, never a property of the input.
var ErrInvariant = errors.New("graph invariant violated")

type (
	// AdjacencyMap maps each processed module name to the sorted,
	// de-duplicated names it directly references. Unresolved and shared
	// modules map to an empty list.
	AdjacencyMap map[modref.Name][]modref.Name

	// Node is the canonical arena entry for one module name.
	Node struct {
		Name   modref.Name
		Label  string
		Module *ResolvedModule
		// Children are the referenced names in ascending ordinal order.
		Children []modref.Name
		// Cycle holds the children that were still being resolved when this
		// node referenced them.
		Cycle []modref.Name
	}

	// Graph is the deduplicated result of one build. Each module name is
	// stored exactly once in Nodes and Adjacency.
	Graph struct {
		Root      modref.Name
		Nodes     map[modref.Name]*Node
		Adjacency AdjacencyMap
		// Order lists names in the order they were first processed.
		Order []modref.Name
	}

	// InvariantError reports which module broke a graph invariant.
	InvariantError struct {
		Name   modref.Name
		Reason string
	}
)

func newGraph() *Graph {
	return &Graph{
		Nodes:     make(map[modref.Name]*Node),
		Adjacency: make(AdjacencyMap),
	}
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: module %q: %s", ErrInvariant, e.Name, e.Reason)
}

// Unwrap returns ErrInvariant for use with errors.Is.
func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Node returns the canonical node for name.
func (g *Graph) Node(name modref.Name) (*Node, bool) {
	n, ok := g.Nodes[name]
	return n, ok
}

// Len returns the number of distinct modules.
func (g *Graph) Len() int { return len(g.Nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, targets := range g.Adjacency {
		count += len(targets)
	}
	return count
}

// IsCycleEdge reports whether the edge from -> to closed a cycle during the build.
func (g *Graph) IsCycleEdge(from, to modref.Name) bool {
	n, ok := g.Nodes[from]
	return ok && slices.Contains(n.Cycle, to)
}

// markCycleEdges recomputes Node.Cycle with the walk Build uses: depth
// first from the root, children in order, an edge to a module on the
// current path closing a cycle. Modules without an Adjacency entry are not
// descended into.
func (g *Graph) markCycleEdges() {
	for _, n := range g.Nodes {
		n.Cycle = nil
	}

	path := make(map[modref.Name]bool)
	done := make(map[modref.Name]bool, len(g.Nodes))

	var walk func(name modref.Name)
	walk = func(name modref.Name) {
		n := g.Nodes[name]
		done[name] = true
		if _, expanded := g.Adjacency[name]; !expanded {
			return
		}

		path[name] = true
		defer delete(path, name)

		for _, child := range n.Children {
			switch {
			case path[child]:
				n.Cycle = append(n.Cycle, child)
			case done[child]:
			default:
				if _, ok := g.Nodes[child]; ok {
					walk(child)
				}
			}
		}
	}
	if _, ok := g.Nodes[g.Root]; ok {
		walk(g.Root)
	}
}

// Validate checks the structural invariants of a built graph: every
// referenced name has a node, nodes and adjacency agree, and Order lists
// each node exactly once.
func (g *Graph) Validate() error {
	if _, ok := g.Nodes[g.Root]; !ok {
		return &InvariantError{Name: g.Root, Reason: "root has no node"}
	}
	if len(g.Order) != len(g.Nodes) {
		return &InvariantError{Name: g.Root, Reason: fmt.Sprintf("order lists %d names for %d nodes", len(g.Order), len(g.Nodes))}
	}
	for _, name := range g.Order {
		n, ok := g.Nodes[name]
		if !ok {
			return &InvariantError{Name: name, Reason: "ordered name has no node"}
		}
		targets, ok := g.Adjacency[name]
		if !ok {
			return &InvariantError{Name: name, Reason: "processed module has no adjacency entry"}
		}
		if !slices.Equal(targets, n.Children) {
			return &InvariantError{Name: name, Reason: "children disagree with adjacency"}
		}
		if n.Module.Terminal() && len(n.Children) > 0 {
			return &InvariantError{Name: name, Reason: "terminal module has children"}
		}
		for _, child := range n.Children {
			if _, ok := g.Nodes[child]; !ok {
				return &InvariantError{Name: child, Reason: fmt.Sprintf("referenced by %q but never processed", name)}
			}
		}
	}
	return nil
}

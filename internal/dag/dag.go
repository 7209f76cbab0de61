// SPDX-License-Identifier: MPL-2.0

// Package dag computes a load order for a module graph: every module comes
// after the modules it references.
package dag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

type (
	// CycleError reports the modules left over when no order exists.
	CycleError struct {
		Cycle []modref.Name
	}

	// Graph is a directed graph of module names. An edge from A to B means
	// A must be loaded before B.
	Graph struct {
		adjacency map[modref.Name][]modref.Name
		nodes     []modref.Name
		nodeSet   map[modref.Name]bool
	}
)

func (e *CycleError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		names[i] = n.String()
	}
	return fmt.Sprintf("reference cycle among: %s", strings.Join(names, ", "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[modref.Name][]modref.Name),
		nodeSet:   make(map[modref.Name]bool),
	}
}

// FromRefGraph builds the load-order graph of g. Each reference becomes an
// edge from the referenced module to the referencing one. Cycle edges are
// left out, so the result is always acyclic.
func FromRefGraph(g *refgraph.Graph) *Graph {
	d := New()
	names := make([]modref.Name, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	modref.SortNames(names)

	for _, name := range names {
		d.AddNode(name)
	}
	for _, name := range names {
		for _, child := range g.Nodes[name].Children {
			if g.IsCycleEdge(name, child) {
				continue
			}
			d.AddEdge(child, name)
		}
	}
	return d
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name modref.Name) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds the edge from -> to, adding missing nodes. Duplicate edges
// are ignored.
func (g *Graph) AddEdge(from, to modref.Name) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns the nodes in an order where every edge points
// forward (Kahn's algorithm). Among nodes that are ready at the same time,
// the one added first comes first. A cycle yields *CycleError.
func (g *Graph) TopologicalSort() ([]modref.Name, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[modref.Name]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	position := make(map[modref.Name]int, len(g.nodes))
	var ready []modref.Name
	for i, node := range g.nodes {
		position[node] = i
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]modref.Name, 0, len(g.nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = insertByPosition(ready, neighbor, position)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []modref.Name
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return result, nil
}

func insertByPosition(ready []modref.Name, name modref.Name, position map[modref.Name]int) []modref.Name {
	i, _ := slices.BinarySearchFunc(ready, name, func(a, b modref.Name) int {
		return position[a] - position[b]
	})
	return slices.Insert(ready, i, name)
}

// LoadOrder returns the modules of g with every module after the modules it
// references. A reference that closes a cycle is not honored, and ties go to
// the smaller name.
func LoadOrder(g *refgraph.Graph) ([]modref.Name, error) {
	return FromRefGraph(g).TopologicalSort()
}

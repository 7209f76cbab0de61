// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"cmp"
	"slices"

	"github.com/showrefs/showrefs/pkg/modref"
)

type (
	// ReverseNode lists the modules that directly reference Name. Children
	// are shared node objects, so the index forms a graph, not a tree.
	ReverseNode struct {
		Name     modref.Name
		Label    string
		Children []*ReverseNode
	}

	// ReverseIndex maps a module name to its ReverseNode.
	ReverseIndex map[modref.Name]*ReverseNode
)

// BuildReverseIndex inverts adj. For every edge A -> B, the node for A is
// added to the children of the node for B. Every key and every target gets
// a node; duplicate edges are ignored and self edges are kept.
func BuildReverseIndex(adj AdjacencyMap) ReverseIndex {
	idx := make(ReverseIndex, len(adj))
	get := func(name modref.Name) *ReverseNode {
		n, ok := idx[name]
		if !ok {
			n = &ReverseNode{Name: name, Label: string(name)}
			idx[name] = n
		}
		return n
	}

	for _, from := range sortedKeys(adj) {
		src := get(from)
		for _, to := range adj[from] {
			dst := get(to)
			if !slices.Contains(dst.Children, src) {
				dst.Children = append(dst.Children, src)
			}
		}
	}

	for _, n := range idx {
		slices.SortFunc(n.Children, func(a, b *ReverseNode) int {
			return cmp.Compare(a.Name, b.Name)
		})
	}
	return idx
}

// ApplyLabels copies the labels of g's nodes onto the reverse nodes of the
// same name, so the reverse view shows the same status suffixes.
func (r ReverseIndex) ApplyLabels(g *Graph) {
	for name, n := range r {
		if node, ok := g.Nodes[name]; ok {
			n.Label = node.Label
		}
	}
}

// Names returns the indexed module names in ascending order.
func (r ReverseIndex) Names() []modref.Name {
	names := make([]modref.Name, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	modref.SortNames(names)
	return names
}

// Dependents returns every module that transitively references name,
// sorted by name. name itself is included only when it lies on a cycle.
func (r ReverseIndex) Dependents(name modref.Name) []modref.Name {
	start, ok := r[name]
	if !ok {
		return nil
	}

	visited := make(map[modref.Name]bool)
	var walk func(n *ReverseNode)
	walk = func(n *ReverseNode) {
		for _, c := range n.Children {
			if visited[c.Name] {
				continue
			}
			visited[c.Name] = true
			walk(c)
		}
	}
	walk(start)

	out := make([]modref.Name, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	modref.SortNames(out)
	return out
}

func sortedKeys(adj AdjacencyMap) []modref.Name {
	keys := make([]modref.Name, 0, len(adj))
	for k := range adj {
		keys = append(keys, k)
	}
	modref.SortNames(keys)
	return keys
}

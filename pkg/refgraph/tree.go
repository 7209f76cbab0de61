// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"github.com/showrefs/showrefs/pkg/modref"
)

type (
	// TreeOptions controls how a Graph is unfolded into a tree.
	TreeOptions struct {
		// ExpandAll unfolds the dependencies of every occurrence of a module,
		// not only its first one. Cycles still stop at the repeated module.
		ExpandAll bool
		// MaxDepth limits the depth of the tree; zero means unlimited.
		MaxDepth int
	}

	// GraphNode is one occurrence of a module in the tree view of a Graph.
	// Occurrences of the same module share the same *ResolvedModule.
	GraphNode struct {
		Name     modref.Name
		Label    string
		Module   *ResolvedModule
		Children []*GraphNode
		// Alias is true for every occurrence after the first one.
		Alias bool
		// Cycle is true when the module is already an ancestor of this occurrence.
		Cycle bool
		// Pending is true when the module has dependencies that are not shown,
		// either because of MaxDepth or because they were never expanded.
		Pending bool
	}
)

// Tree unfolds the graph into a tree rooted at g.Root. The first occurrence
// of a module in depth-first order is canonical; later occurrences are
// aliases that are not unfolded unless opts.ExpandAll is set.
func (g *Graph) Tree(opts TreeOptions) (*GraphNode, error) {
	seen := make(map[modref.Name]bool, len(g.Nodes))
	path := make(map[modref.Name]bool)

	var walk func(name modref.Name, depth int) (*GraphNode, error)
	walk = func(name modref.Name, depth int) (*GraphNode, error) {
		n, ok := g.Nodes[name]
		if !ok {
			return nil, &InvariantError{Name: name, Reason: "referenced module has no node"}
		}

		gn := &GraphNode{Name: name, Label: n.Label, Module: n.Module}
		if path[name] {
			gn.Alias, gn.Cycle = true, true
			return gn, nil
		}
		if seen[name] {
			gn.Alias = true
			if !opts.ExpandAll {
				return gn, nil
			}
		}
		// An occurrence whose children stay hidden is not canonical; a
		// later, shallower occurrence unfolds the module instead.
		if _, expanded := g.Adjacency[name]; !expanded {
			gn.Pending = !n.Module.Terminal()
			return gn, nil
		}
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth && len(n.Children) > 0 {
			gn.Pending = true
			return gn, nil
		}
		seen[name] = true

		path[name] = true
		defer delete(path, name)

		gn.Children = make([]*GraphNode, 0, len(n.Children))
		for _, child := range n.Children {
			c, err := walk(child, depth+1)
			if err != nil {
				return nil, err
			}
			gn.Children = append(gn.Children, c)
		}
		return gn, nil
	}

	return walk(g.Root, 0)
}

// Walk calls fn for n and each of its descendants in depth-first order.
// Returning false from fn skips the children of that node.
func (n *GraphNode) Walk(fn func(node *GraphNode, depth int) bool) {
	var walk func(node *GraphNode, depth int)
	walk = func(node *GraphNode, depth int) {
		if !fn(node, depth) {
			return
		}
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Find returns the first occurrence of name in depth-first order.
func (n *GraphNode) Find(name modref.Name) *GraphNode {
	var found *GraphNode
	n.Walk(func(node *GraphNode, _ int) bool {
		if found != nil {
			return false
		}
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}

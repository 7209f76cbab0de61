// SPDX-License-Identifier: MPL-2.0

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

// Markers appended to labels in tree views.
const (
	// MarkCycle follows a module that is already an ancestor.
	MarkCycle = "↻"
	// MarkAlias follows a repeated module whose dependencies are shown at
	// its first occurrence.
	MarkAlias = "…"
	// MarkPending follows a module whose dependencies were not loaded yet
	// or lie beyond the depth limit.
	MarkPending = "+"
)

const plainIndent = "  "

type (
	// Options configures a Renderer.
	Options struct {
		// Plain disables styling and box drawing.
		Plain bool
		// Renderer is the lipgloss renderer styles are created on, e.g. one
		// bound to an SSH session. Nil uses the default renderer.
		Renderer *lipgloss.Renderer
	}

	// Renderer turns snapshots into text views.
	Renderer struct {
		plain  bool
		styles Styles
	}

	// item is the presentation-neutral form of a tree occurrence shared by
	// the forward and reverse views.
	item struct {
		label    string
		kind     itemKind
		marks    []string
		children []*item
	}

	itemKind int
)

const (
	kindModule itemKind = iota
	kindRoot
	kindShared
	kindUnavailable
	kindAlias
	kindCycle
)

// New creates a Renderer.
func New(opts Options) *Renderer {
	return &Renderer{plain: opts.Plain, styles: NewStyles(opts.Renderer)}
}

// Plain reports whether styling is disabled.
func (r *Renderer) Plain() bool { return r.plain }

// Tree renders the forward dependency tree rooted at root.
func (r *Renderer) Tree(root *refgraph.GraphNode) string {
	if root == nil {
		return ""
	}
	it := forwardItem(root)
	it.kind = kindRoot
	return r.draw(it)
}

// OneLine renders one line per module in first-processed order listing its
// direct dependencies:
//
//	App -> Core, Logging (shared), Missing (not available)
func (r *Renderer) OneLine(g *refgraph.Graph) string {
	var sb strings.Builder
	for _, name := range g.Order {
		n := g.Nodes[name]
		sb.WriteString(r.label(n.Label, kindOf(n.Module, name == g.Root)))
		if len(n.Children) > 0 {
			sb.WriteString(" -> ")
			for i, child := range n.Children {
				if i > 0 {
					sb.WriteString(", ")
				}
				c := g.Nodes[child]
				kind := kindOf(c.Module, false)
				if g.IsCycleEdge(name, child) {
					kind = kindCycle
				}
				sb.WriteString(r.label(c.Label, kind))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Reverse renders the modules that reference name, transitively. The first
// occurrence of a module is unfolded; later occurrences are marked unless
// expandAll is set. A module that is already on the current path is
// marked as a cycle and not unfolded again.
func (r *Renderer) Reverse(idx refgraph.ReverseIndex, name modref.Name, expandAll bool) (string, error) {
	start, ok := idx[name]
	if !ok {
		return "", &refgraph.InvariantError{Name: name, Reason: "module is not in the reverse index"}
	}

	seen := make(map[*refgraph.ReverseNode]bool)
	path := make(map[*refgraph.ReverseNode]bool)

	var walk func(n *refgraph.ReverseNode) *item
	walk = func(n *refgraph.ReverseNode) *item {
		it := &item{label: n.Label}
		switch {
		case path[n]:
			it.kind = kindCycle
			it.marks = append(it.marks, MarkCycle)
			return it
		case seen[n] && !expandAll:
			it.kind = kindAlias
			if len(n.Children) > 0 {
				it.marks = append(it.marks, MarkAlias)
			}
			return it
		}
		seen[n] = true
		path[n] = true
		defer delete(path, n)
		for _, c := range n.Children {
			it.children = append(it.children, walk(c))
		}
		return it
	}

	root := walk(start)
	root.kind = kindRoot
	return r.draw(root), nil
}

func forwardItem(n *refgraph.GraphNode) *item {
	it := &item{label: n.Label, kind: kindOf(n.Module, false)}
	switch {
	case n.Cycle:
		it.kind = kindCycle
		it.marks = append(it.marks, MarkCycle)
	case n.Alias && len(n.Children) == 0:
		it.kind = kindAlias
		if hasDependencies(n.Module) {
			it.marks = append(it.marks, MarkAlias)
		}
	}
	if n.Pending {
		it.marks = append(it.marks, MarkPending)
	}
	for _, c := range n.Children {
		it.children = append(it.children, forwardItem(c))
	}
	return it
}

func hasDependencies(m *refgraph.ResolvedModule) bool {
	return !m.Terminal() && len(m.DeclaredDependencies) > 0
}

func kindOf(m *refgraph.ResolvedModule, root bool) itemKind {
	switch {
	case root:
		return kindRoot
	case m.Outcome() == refgraph.OutcomeUnavailable:
		return kindUnavailable
	case m.Outcome() == refgraph.OutcomeShared:
		return kindShared
	default:
		return kindModule
	}
}

func (r *Renderer) draw(it *item) string {
	if r.plain {
		var sb strings.Builder
		r.drawPlain(&sb, it, 0)
		return sb.String()
	}

	t := r.styledTree(it).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(r.styles.Branch)
	return t.String() + "\n"
}

func (r *Renderer) drawPlain(sb *strings.Builder, it *item, depth int) {
	sb.WriteString(strings.Repeat(plainIndent, depth))
	sb.WriteString(r.itemText(it))
	sb.WriteByte('\n')
	for _, c := range it.children {
		r.drawPlain(sb, c, depth+1)
	}
}

func (r *Renderer) styledTree(it *item) *tree.Tree {
	t := tree.Root(r.itemText(it))
	for _, c := range it.children {
		if len(c.children) == 0 {
			t.Child(r.itemText(c))
			continue
		}
		t.Child(r.styledTree(c))
	}
	return t
}

func (r *Renderer) itemText(it *item) string {
	text := r.label(it.label, it.kind)
	if len(it.marks) > 0 {
		text += " " + strings.Join(it.marks, " ")
	}
	return text
}

func (r *Renderer) label(text string, kind itemKind) string {
	if r.plain {
		return text
	}
	return r.style(kind).Render(text)
}

func (r *Renderer) style(kind itemKind) lipgloss.Style {
	switch kind {
	case kindRoot:
		return r.styles.Root
	case kindShared:
		return r.styles.Shared
	case kindUnavailable:
		return r.styles.Unavailable
	case kindAlias:
		return r.styles.Alias
	case kindCycle:
		return r.styles.Cycle
	default:
		return r.styles.Module
	}
}

// Names renders a sorted list of module names, one per line.
func (r *Renderer) Names(names []modref.Name) string {
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintln(&sb, n)
	}
	return sb.String()
}

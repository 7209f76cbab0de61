// SPDX-License-Identifier: MPL-2.0

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

// Field is one label/value row of the detail panel.
type Field struct {
	Label string
	Value string
}

// InfoFields returns the detail rows for a module in display order.
// Unavailable modules only report their status.
func InfoFields(m *refgraph.ResolvedModule) []Field {
	if !m.Available() {
		return []Field{{Label: "Status", Value: "not available"}}
	}

	fields := []Field{
		{Label: "Location", Value: m.Location},
		{Label: "Version", Value: m.Metadata.Version.String()},
	}
	if m.IsShared {
		fields = append(fields, Field{Label: "Source", Value: "shared cache"})
	}
	for _, f := range m.Metadata.Attributes.Fields() {
		fields = append(fields, Field{Label: f[0], Value: f[1]})
	}
	return fields
}

// Info renders the detail panel for the module with the given tree label.
// A reference whose requested version differs from the located module's
// version gets a warning line.
func (r *Renderer) Info(label string, m *refgraph.ResolvedModule) string {
	fields := InfoFields(m)

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}

	var body strings.Builder
	for i, f := range fields {
		if i > 0 {
			body.WriteByte('\n')
		}
		name := fmt.Sprintf("%-*s", width+1, f.Label+":")
		if r.plain {
			body.WriteString(name + " " + f.Value)
			continue
		}
		body.WriteString(r.styles.Label.Render(name) + " " + r.styles.Value.Render(f.Value))
	}

	if warn := versionWarning(m); warn != "" {
		body.WriteString("\n\n")
		if r.plain {
			body.WriteString("! " + warn)
		} else {
			body.WriteString(r.styles.Warning.Render("⚠ " + warn))
		}
	}

	if r.plain {
		return label + "\n" + body.String() + "\n"
	}
	content := r.styles.Title.Render(label) + "\n" + body.String()
	return r.styles.Panel.Render(content) + "\n"
}

func versionWarning(m *refgraph.ResolvedModule) string {
	if !m.Available() {
		return ""
	}
	requested, actual := m.Reference.Version, m.Metadata.Version
	if metadata.VersionsMatch(requested, actual) {
		return ""
	}
	return fmt.Sprintf("requested version %s, found %s", requested, actual)
}

// Stats summarizes a snapshot.
func (r *Renderer) Stats(s *refgraph.Snapshot) string {
	var shared, unavailable, cycles int
	for _, n := range s.Graph.Nodes {
		switch n.Module.Outcome() {
		case refgraph.OutcomeShared:
			shared++
		case refgraph.OutcomeUnavailable:
			unavailable++
		}
		cycles += len(n.Cycle)
	}

	line := fmt.Sprintf("%d modules, %d references (%d shared, %d not available, %d cycles) in %s [load %s]",
		s.Graph.Len(), s.Graph.EdgeCount(), shared, unavailable, cycles, s.Elapsed.Round(time.Microsecond), s.ID)
	if r.plain {
		return line + "\n"
	}
	return r.styles.Subtitle.Render(line) + "\n"
}

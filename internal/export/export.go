// SPDX-License-Identifier: MPL-2.0

// Package export encodes module graph snapshots as JSON, YAML or TOML.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/showrefs/showrefs/internal/config"
	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

// ErrUnsupportedFormat is returned for formats without an encoder,
// including the text format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

type (
	// Document is the serialized form of a snapshot.
	Document struct {
		ID       string    `json:"id" yaml:"id" toml:"id"`
		Root     string    `json:"root" yaml:"root" toml:"root"`
		RootPath string    `json:"root_path" yaml:"root_path" toml:"root_path"`
		LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at" toml:"loaded_at"`
		// Modules are listed in the order the build first reached them.
		Modules []Module `json:"modules" yaml:"modules" toml:"modules"`
		// Reverse maps each module to the modules that reference it directly.
		Reverse map[string][]string `json:"reverse" yaml:"reverse" toml:"reverse"`
	}

	// Module is one node of the exported graph.
	Module struct {
		Name         string               `json:"name" yaml:"name" toml:"name"`
		Label        string               `json:"label" yaml:"label" toml:"label"`
		Location     string               `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
		Version      string               `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
		Shared       bool                 `json:"shared" yaml:"shared" toml:"shared"`
		Available    bool                 `json:"available" yaml:"available" toml:"available"`
		Dependencies []string             `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
		Cycles       []string             `json:"cycles,omitempty" yaml:"cycles,omitempty" toml:"cycles,omitempty"`
		Attributes   *metadata.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
	}
)

// FromSnapshot converts s into a Document.
func FromSnapshot(s *refgraph.Snapshot) *Document {
	doc := &Document{
		ID:       s.ID.String(),
		Root:     string(s.Graph.Root),
		RootPath: s.RootPath,
		LoadedAt: s.LoadedAt.UTC(),
		Modules:  make([]Module, 0, s.Graph.Len()),
		Reverse:  make(map[string][]string, len(s.Reverse)),
	}

	for _, name := range s.Graph.Order {
		n := s.Graph.Nodes[name]
		m := Module{
			Name:         string(name),
			Label:        n.Label,
			Location:     n.Module.Location,
			Shared:       n.Module.IsShared,
			Available:    n.Module.Available(),
			Dependencies: namesToStrings(n.Children),
		}
		for _, c := range n.Cycle {
			m.Cycles = append(m.Cycles, string(c))
		}
		if md := n.Module.Metadata; md != nil {
			m.Version = md.Version.String()
			if md.Attributes != (metadata.Attributes{}) {
				attrs := md.Attributes
				m.Attributes = &attrs
			}
		}
		doc.Modules = append(doc.Modules, m)
	}

	for _, name := range s.Reverse.Names() {
		rn := s.Reverse[name]
		refs := make([]string, len(rn.Children))
		for i, c := range rn.Children {
			refs[i] = string(c.Name)
		}
		doc.Reverse[string(name)] = refs
	}
	return doc
}

// Write encodes s to w in the given format.
func Write(w io.Writer, format config.OutputFormat, s *refgraph.Snapshot) error {
	doc := FromSnapshot(s)

	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func namesToStrings[T ~string](names []T) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

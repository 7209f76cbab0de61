// SPDX-License-Identifier: MPL-2.0

// Package metadata reads the identity and declared references of a module file.
//
// The graph engine only needs a Reader; the package ships a ManifestReader for
// CUE module manifests (a sidecar "<module>.cue" next to a binary, or the
// module file itself), and a CachingReader that memoizes decoded manifests
// across repeated loads of the same tree.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/showrefs/showrefs/pkg/modref"
)

var (
	// ErrNotFound is returned when the module file does not exist.
	ErrNotFound = errors.New("module file not found")
	// ErrUnreadable is returned when a module file exists but its metadata cannot be decoded.
	ErrUnreadable = errors.New("module metadata unreadable")
)

type (
	// Reader exposes the metadata of a loadable module.
	Reader interface {
		Read(ctx context.Context, path string) (*Metadata, error)
	}

	// ReaderFunc adapts a function to the Reader interface.
	ReaderFunc func(ctx context.Context, path string) (*Metadata, error)

	// Metadata is the declared identity of a module. Values returned by a
	// Reader are shared between callers and must be treated as read-only.
	Metadata struct {
		// Name is the logical module name.
		Name modref.Name
		// Version is the module's own version token.
		Version modref.Version
		// References are the declared dependencies, in declaration order.
		References []modref.Reference
		// Attributes are descriptive strings used for detail display only.
		Attributes Attributes
		// Source is the file the metadata was decoded from.
		Source string
	}

	// Attributes holds the descriptive attributes of a module.
	Attributes struct {
		Title                string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
		Description          string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
		Product              string `json:"product,omitempty" yaml:"product,omitempty" toml:"product,omitempty"`
		Copyright            string `json:"copyright,omitempty" yaml:"copyright,omitempty" toml:"copyright,omitempty"`
		Company              string `json:"company,omitempty" yaml:"company,omitempty" toml:"company,omitempty"`
		Trademark            string `json:"trademark,omitempty" yaml:"trademark,omitempty" toml:"trademark,omitempty"`
		InformationalVersion string `json:"informational_version,omitempty" yaml:"informational_version,omitempty" toml:"informational_version,omitempty"`
		FileVersion          string `json:"file_version,omitempty" yaml:"file_version,omitempty" toml:"file_version,omitempty"`
		AssemblyVersion      string `json:"assembly_version,omitempty" yaml:"assembly_version,omitempty" toml:"assembly_version,omitempty"`
	}

	// ReadError describes why the metadata at Path could not be read.
	// It wraps ErrNotFound or ErrUnreadable together with the cause.
	ReadError struct {
		Path  string
		Kind  error
		Cause error
	}
)

// Read calls f(ctx, path).
func (f ReaderFunc) Read(ctx context.Context, path string) (*Metadata, error) {
	return f(ctx, path)
}

// Reference returns the reference that identifies this module.
func (m *Metadata) Reference() modref.Reference {
	return modref.Reference{Name: m.Name, Version: m.Version}
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Cause)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *ReadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Fields returns the attributes as ordered label/value pairs for display.
func (a Attributes) Fields() [][2]string {
	return [][2]string{
		{"File Version", a.FileVersion},
		{"Assembly Version", a.AssemblyVersion},
		{"Informational Version", a.InformationalVersion},
		{"Title", a.Title},
		{"Description", a.Description},
		{"Product", a.Product},
		{"Copyright", a.Copyright},
		{"Company", a.Company},
		{"Trademark", a.Trademark},
	}
}

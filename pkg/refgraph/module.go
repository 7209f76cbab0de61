// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"context"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
)

const (
	// OutcomeLocal means the module was loaded from the root module's directory.
	OutcomeLocal Outcome = "local"
	// OutcomeShared means the module was found in the shared module cache.
	OutcomeShared Outcome = "shared"
	// OutcomeUnavailable means no strategy could locate the module.
	OutcomeUnavailable Outcome = "unavailable"

	suffixUnavailable = " (not available)"
	suffixShared      = " (shared)"
)

type (
	// Outcome classifies how a reference was resolved.
	Outcome string

	// ResolvedModule is the result of resolving one Reference. Resolution
	// failure is not an error: it yields a ResolvedModule without Metadata.
	ResolvedModule struct {
		// Reference is the reference that produced this module.
		Reference modref.Reference
		// Location is the module file path. For shared modules it is the
		// path inside the shared cache.
		Location string
		// IsShared is true when the module came from the shared cache.
		IsShared bool
		// Metadata is nil when resolution failed.
		Metadata *metadata.Metadata
		// DeclaredDependencies is empty for unresolved and shared modules.
		DeclaredDependencies []modref.Reference
	}

	// Resolver resolves references for one root load.
	Resolver interface {
		Resolve(ctx context.Context, ref modref.Reference) *ResolvedModule
	}

	// ResolverFunc adapts a function to the Resolver interface.
	ResolverFunc func(ctx context.Context, ref modref.Reference) *ResolvedModule

	// Opener prepares a root load: it resolves the root module at rootPath
	// and returns a Resolver scoped to that root.
	Opener interface {
		Open(ctx context.Context, rootPath string) (Resolver, *ResolvedModule, error)
	}
)

// Resolve calls f(ctx, ref).
func (f ResolverFunc) Resolve(ctx context.Context, ref modref.Reference) *ResolvedModule {
	return f(ctx, ref)
}

// Unresolved returns the ResolvedModule recorded for a reference that no
// strategy could locate.
func Unresolved(ref modref.Reference) *ResolvedModule {
	return &ResolvedModule{Reference: ref}
}

// Available reports whether the module was located and its metadata read.
func (m *ResolvedModule) Available() bool {
	return m != nil && m.Metadata != nil
}

// Outcome classifies the resolution.
func (m *ResolvedModule) Outcome() Outcome {
	switch {
	case !m.Available():
		return OutcomeUnavailable
	case m.IsShared:
		return OutcomeShared
	default:
		return OutcomeLocal
	}
}

// Terminal reports whether the module's dependencies are never expanded.
func (m *ResolvedModule) Terminal() bool {
	return !m.Available() || m.IsShared
}

// Label returns the display text for a module named name: the name plus a
// status suffix for unresolved or shared modules.
func Label(name modref.Name, m *ResolvedModule) string {
	switch m.Outcome() {
	case OutcomeUnavailable:
		return string(name) + suffixUnavailable
	case OutcomeShared:
		return string(name) + suffixShared
	default:
		return string(name)
	}
}

// String returns the outcome name.
func (o Outcome) String() string { return string(o) }

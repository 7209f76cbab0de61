// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

// Universe is an in-memory set of modules that implements
// refgraph.Resolver and refgraph.Opener.
type Universe struct {
	modules map[modref.Name]*metadata.Metadata
	shared  map[modref.Name]bool
}

var (
	_ refgraph.Resolver = (*Universe)(nil)
	_ refgraph.Opener   = (*Universe)(nil)
)

// NewUniverse parses a space-separated list of "Name:Dep1,Dep2" entries.
// A "!" after the name marks a shared module. Dependencies that have no
// entry of their own stay unresolved.
//
//	NewUniverse("App:Core,Log Core:Log! Log!:")
func NewUniverse(spec string) *Universe {
	u := &Universe{
		modules: make(map[modref.Name]*metadata.Metadata),
		shared:  make(map[modref.Name]bool),
	}
	for _, entry := range strings.Fields(spec) {
		name, deps, _ := strings.Cut(entry, ":")
		if trimmed, ok := strings.CutSuffix(name, "!"); ok {
			name = trimmed
			u.shared[modref.Name(name)] = true
		}
		md := &metadata.Metadata{
			Name:    modref.Name(name),
			Version: "1.0.0.0",
			Attributes: metadata.Attributes{
				Title:   name + " module",
				Company: "Example Corp",
			},
		}
		if deps != "" {
			for _, d := range strings.Split(deps, ",") {
				md.References = append(md.References, modref.New(strings.TrimSuffix(d, "!"), "1.0.0.0"))
			}
		}
		u.modules[md.Name] = md
	}
	return u
}

// Resolve implements refgraph.Resolver.
func (u *Universe) Resolve(_ context.Context, ref modref.Reference) *refgraph.ResolvedModule {
	md, ok := u.modules[ref.Name]
	if !ok {
		return refgraph.Unresolved(ref)
	}
	mod := &refgraph.ResolvedModule{
		Reference: ref,
		Location:  fmt.Sprintf("/app/%s.dll", ref.Name),
		Metadata:  md,
	}
	if u.shared[ref.Name] {
		mod.IsShared = true
		mod.Location = fmt.Sprintf("/shared/%s/%s/%s.dll", ref.Name, md.Version, ref.Name)
		return mod
	}
	mod.DeclaredDependencies = md.References
	return mod
}

// Open implements refgraph.Opener. The root path is the root module's name.
func (u *Universe) Open(ctx context.Context, rootPath string) (refgraph.Resolver, *refgraph.ResolvedModule, error) {
	root := u.Resolve(ctx, modref.New(rootPath, ""))
	if !root.Available() {
		return nil, nil, fmt.Errorf("no module named %q", rootPath)
	}
	return u, root, nil
}

// Snapshot loads root from spec through a fresh refgraph.Session.
func Snapshot(t testing.TB, spec, root string) *refgraph.Snapshot {
	t.Helper()
	snap, err := refgraph.NewSession(NewUniverse(spec)).Load(context.Background(), root)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", root, err)
	}
	return snap
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ModuleTree lays out module manifests for tests: an application
// directory holding the root module and its local dependencies, and a
// shared cache directory.
type ModuleTree struct {
	t        testing.TB
	AppDir   string
	CacheDir string
}

// NewModuleTree creates an empty ModuleTree under t.TempDir().
func NewModuleTree(t testing.TB) *ModuleTree {
	t.Helper()
	base := t.TempDir()
	tree := &ModuleTree{
		t:        t,
		AppDir:   filepath.Join(base, "app"),
		CacheDir: filepath.Join(base, "cache"),
	}
	MustMkdirAll(t, tree.AppDir, 0o755)
	return tree
}

// Manifest returns the CUE manifest text for a module. Each reference is
// "Name" or "Name@Version".
func Manifest(name, version string, refs ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name: %q\n", name)
	if version != "" {
		fmt.Fprintf(&sb, "version: %q\n", version)
	}
	if len(refs) > 0 {
		sb.WriteString("references: [\n")
		for _, r := range refs {
			refName, refVersion, hasVersion := strings.Cut(r, "@")
			if hasVersion {
				fmt.Fprintf(&sb, "\t{name: %q, version: %q},\n", refName, refVersion)
			} else {
				fmt.Fprintf(&sb, "\t{name: %q},\n", refName)
			}
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

// Module writes <AppDir>/<name>.dll as a manifest and returns its path.
func (m *ModuleTree) Module(name string, refs ...string) string {
	m.t.Helper()
	return m.ModuleExt(name, ".dll", refs...)
}

// ModuleExt writes <AppDir>/<name><ext> as a manifest and returns its path.
func (m *ModuleTree) ModuleExt(name, ext string, refs ...string) string {
	m.t.Helper()
	path := filepath.Join(m.AppDir, name+ext)
	MustWriteFile(m.t, path, Manifest(name, "1.0.0.0", refs...))
	return path
}

// Binary writes <AppDir>/<name><ext> with binary content and no sidecar.
func (m *ModuleTree) Binary(name, ext string) string {
	m.t.Helper()
	path := filepath.Join(m.AppDir, name+ext)
	MustWriteFile(m.t, path, "MZ\x90\x00\x03\x00\x00\x00")
	return path
}

// Sidecar writes a binary <AppDir>/<name><ext> together with its
// <name><ext>.cue manifest and returns the module path.
func (m *ModuleTree) Sidecar(name, ext string, refs ...string) string {
	m.t.Helper()
	path := m.Binary(name, ext)
	MustWriteFile(m.t, path+".cue", Manifest(name, "1.0.0.0", refs...))
	return path
}

// Shared writes a module into the shared cache as
// <CacheDir>/<name>/<version>/<name>.dll and returns its path.
func (m *ModuleTree) Shared(name, version string, refs ...string) string {
	m.t.Helper()
	dir := filepath.Join(m.CacheDir, name, version)
	MustMkdirAll(m.t, dir, 0o755)
	path := filepath.Join(dir, name+".dll")
	MustWriteFile(m.t, path, Manifest(name, version, refs...))
	return path
}

// MustWriteFile writes content to path.
// The test fails immediately if the write fails.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

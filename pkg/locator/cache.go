// SPDX-License-Identifier: MPL-2.0

package locator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
)

const (
	// SharedCachePathEnv overrides the default shared cache directory.
	SharedCachePathEnv = "SHOWREFS_SHARED_CACHE"

	// DefaultSharedDir is the shared cache subdirectory within ~/.showrefs.
	DefaultSharedDir = "shared"
)

type (
	// SharedCache looks modules up in a shared module store by name and version.
	SharedCache interface {
		// Lookup returns the path of the module file for ref, or false when
		// the cache does not hold it.
		Lookup(ctx context.Context, ref modref.Reference) (string, bool)
	}

	// DirCache is a SharedCache backed by a directory laid out as
	// <dir>/<name>/<version>/<name><ext>. A missing directory is an empty cache.
	DirCache struct {
		dir        string
		extensions []string
	}

	noCache struct{}
)

// NoCache is a SharedCache that never finds anything.
var NoCache SharedCache = noCache{}

// GetDefaultCacheDir returns the default shared cache directory.
// It checks SHOWREFS_SHARED_CACHE first, then falls back to ~/.showrefs/shared.
func GetDefaultCacheDir() (string, error) {
	return GetDefaultCacheDirWith(os.Getenv)
}

// GetDefaultCacheDirWith is GetDefaultCacheDir with an injectable getenv.
func GetDefaultCacheDirWith(getenv func(string) string) (string, error) {
	if envPath := getenv(SharedCachePathEnv); envPath != "" {
		return envPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".showrefs", DefaultSharedDir), nil
}

// NewDirCache creates a DirCache rooted at dir probing the given extensions
// in order. Nil extensions use DefaultExtensions.
func NewDirCache(dir string, extensions []string) *DirCache {
	if extensions == nil {
		extensions = DefaultExtensions()
	}
	return &DirCache{dir: dir, extensions: slices.Clone(extensions)}
}

// Dir returns the cache root directory.
func (c *DirCache) Dir() string { return c.dir }

// Lookup finds ref in the cache. An exact version directory is tried first;
// otherwise the highest cached version that matches ref.Version is used,
// and any cached version matches an unspecified one.
func (c *DirCache) Lookup(ctx context.Context, ref modref.Reference) (string, bool) {
	if ctx.Err() != nil || ref.Validate() != nil {
		return "", false
	}

	moduleDir := filepath.Join(c.dir, string(ref.Name))
	if !ref.Version.IsZero() {
		if path, ok := c.probe(moduleDir, ref.Name, string(ref.Version)); ok {
			return path, true
		}
	}

	for _, v := range c.versions(moduleDir) {
		if !metadata.VersionsMatch(ref.Version, v) {
			continue
		}
		if path, ok := c.probe(moduleDir, ref.Name, string(v)); ok {
			return path, true
		}
	}
	return "", false
}

// Versions returns the cached versions of name, highest first.
func (c *DirCache) Versions(name modref.Name) []modref.Version {
	return c.versions(filepath.Join(c.dir, string(name)))
}

func (c *DirCache) probe(moduleDir string, name modref.Name, version string) (string, bool) {
	for _, ext := range c.extensions {
		path := filepath.Join(moduleDir, version, string(name)+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (c *DirCache) versions(moduleDir string) []modref.Version {
	entries, err := os.ReadDir(moduleDir)
	if err != nil {
		return nil
	}

	versions := make([]modref.Version, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, modref.Version(e.Name()))
		}
	}
	slices.SortFunc(versions, func(a, b modref.Version) int {
		return metadata.CompareVersions(b, a)
	})
	return versions
}

func (noCache) Lookup(context.Context, modref.Reference) (string, bool) {
	return "", false
}

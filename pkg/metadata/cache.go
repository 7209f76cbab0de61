// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded manifests kept by a CachingReader.
const DefaultCacheSize = 1024

type (
	// CachingReader memoizes another Reader. Entries are keyed by the module
	// path together with the size and modification time of the module file
	// and of its manifest sidecar, so an edited file is decoded again.
	// Failed reads are not cached.
	CachingReader struct {
		next  Reader
		cache *lru.Cache[cacheKey, *Metadata]
	}

	cacheKey struct {
		path       string
		size       int64
		modTime    int64
		sidecarMod int64
	}
)

var _ Reader = (*CachingReader)(nil)

// NewCachingReader wraps next with an LRU cache holding up to size entries.
// A non-positive size uses DefaultCacheSize.
func NewCachingReader(next Reader, size int) (*CachingReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *Metadata](size)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	return &CachingReader{next: next, cache: cache}, nil
}

// Read returns the cached metadata for path or delegates to the wrapped Reader.
func (c *CachingReader) Read(ctx context.Context, path string) (*Metadata, error) {
	key, ok := keyFor(path)
	if !ok {
		return c.next.Read(ctx, path)
	}
	if meta, hit := c.cache.Get(key); hit {
		return meta, nil
	}

	meta, err := c.next.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, meta)
	return meta, nil
}

// Len returns the number of cached entries.
func (c *CachingReader) Len() int {
	return c.cache.Len()
}

// Purge drops every cached entry.
func (c *CachingReader) Purge() {
	c.cache.Purge()
}

func keyFor(path string) (cacheKey, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return cacheKey{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return cacheKey{}, false
	}
	key := cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if sidecar, err := os.Stat(abs + SidecarExt); err == nil {
		key.sidecarMod = sidecar.ModTime().UnixNano()
	}
	return key, true
}

// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/showrefs/showrefs/pkg/cueutil"
	"github.com/showrefs/showrefs/pkg/modref"
)

// SidecarExt is appended to a module file name to find its manifest
// (e.g. "Core.dll" → "Core.dll.cue").
const SidecarExt = ".cue"

// sniffLen is how many leading bytes are checked for binary content.
const sniffLen = 512

var (
	//go:embed module_schema.cue
	moduleSchema string

	_ Reader = (*ManifestReader)(nil)
)

type (
	// ManifestReader decodes CUE module manifests.
	//
	// For a module file at path it first reads path+SidecarExt; when no
	// sidecar exists the module file itself must be a CUE manifest. A module
	// file with binary content and no sidecar is unreadable.
	ManifestReader struct {
		maxFileSize int64
	}

	// ManifestOption configures a ManifestReader.
	ManifestOption func(*ManifestReader)

	manifest struct {
		Name       string              `json:"name"`
		Version    string              `json:"version,omitempty"`
		References []manifestReference `json:"references,omitempty"`
		Attributes Attributes          `json:"attributes,omitempty"`
	}

	manifestReference struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	}
)

// WithMaxManifestSize overrides cueutil.DefaultMaxFileSize.
func WithMaxManifestSize(size int64) ManifestOption {
	return func(r *ManifestReader) {
		r.maxFileSize = size
	}
}

// NewManifestReader creates a ManifestReader.
func NewManifestReader(opts ...ManifestOption) *ManifestReader {
	r := &ManifestReader{maxFileSize: cueutil.DefaultMaxFileSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ManifestPath returns the file the reader decodes for the module at path:
// the sidecar when present, otherwise path itself.
func ManifestPath(path string) string {
	sidecar := path + SidecarExt
	if info, err := os.Stat(sidecar); err == nil && !info.IsDir() {
		return sidecar
	}
	return path
}

// Read decodes the manifest of the module at path.
func (r *ManifestReader) Read(ctx context.Context, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ReadError{Path: path, Kind: ErrNotFound}
		}
		return nil, &ReadError{Path: path, Kind: ErrUnreadable, Cause: err}
	}
	if info.IsDir() {
		return nil, &ReadError{Path: path, Kind: ErrUnreadable, Cause: errors.New("is a directory")}
	}

	source := ManifestPath(path)
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &ReadError{Path: path, Kind: ErrUnreadable, Cause: err}
	}

	meta, err := r.decode(data, source)
	if err != nil {
		return nil, &ReadError{Path: path, Kind: ErrUnreadable, Cause: err}
	}
	return meta, nil
}

// Decode parses manifest bytes without touching the filesystem.
// source is used for error messages and recorded in Metadata.Source.
func (r *ManifestReader) Decode(data []byte, source string) (*Metadata, error) {
	return r.decode(data, source)
}

func (r *ManifestReader) decode(data []byte, source string) (*Metadata, error) {
	if isBinary(data) {
		return nil, fmt.Errorf("binary module has no %s manifest", SidecarExt)
	}

	result, err := cueutil.ParseAndDecodeString[manifest](
		moduleSchema,
		data,
		"#Module",
		cueutil.WithFilename(source),
		cueutil.WithMaxFileSize(r.maxFileSize),
	)
	if err != nil {
		return nil, err
	}
	m := result.Value

	// Names are joined with directories by the locator; CUE cannot express
	// the path-safety rules, so they are checked here.
	meta := &Metadata{
		Name:       modref.Name(m.Name),
		Version:    modref.Version(m.Version),
		Attributes: m.Attributes,
		Source:     source,
		References: make([]modref.Reference, 0, len(m.References)),
	}
	if err := meta.Reference().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	for i, ref := range m.References {
		mr := modref.New(ref.Name, ref.Version)
		if err := mr.Validate(); err != nil {
			return nil, fmt.Errorf("%s: references[%d]: %w", source, i, err)
		}
		meta.References = append(meta.References, mr)
	}
	return meta, nil
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}

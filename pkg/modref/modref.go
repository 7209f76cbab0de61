// SPDX-License-Identifier: MPL-2.0

// Package modref defines the identifiers used to request module resolution.
//
// A Reference pairs a logical module Name with an opaque Version token.
// Resolution, caching and deduplication are keyed by Name only; the Version
// is carried for shared-cache lookups and for display.
package modref

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/showrefs/showrefs/internal/platform"
)

var (
	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid module name")
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid module version")
)

type (
	// Name is the logical name of a module (e.g., "System.Core").
	// A valid name is non-empty, has no surrounding whitespace and contains
	// no path separators, so it can be joined with a directory safely.
	Name string

	// Version is an opaque version token (e.g., "4.0.0.0", "1.2.3").
	// The zero value means "unspecified".
	Version string

	// Reference identifies a module requested for resolution. It is a value
	// type and never modified after construction.
	Reference struct {
		Name    Name
		Version Version
	}

	// InvalidNameError is returned when a Name value is not a valid module name.
	InvalidNameError struct {
		Value  Name
		Reason string
	}

	// InvalidVersionError is returned when a Version contains whitespace or
	// path separators.
	InvalidVersionError struct {
		Value Version
	}
)

// New creates a Reference from raw strings.
func New(name, version string) Reference {
	return Reference{Name: Name(name), Version: Version(version)}
}

// String returns the string representation of the Name.
func (n Name) String() string { return string(n) }

// IsValid returns whether the Name is a valid module name,
// and a list of validation errors if it is not.
func (n Name) IsValid() (bool, []error) {
	s := string(n)
	switch {
	case strings.TrimSpace(s) == "":
		return false, []error{&InvalidNameError{Value: n, Reason: "must be non-empty"}}
	case strings.TrimSpace(s) != s:
		return false, []error{&InvalidNameError{Value: n, Reason: "must not have surrounding whitespace"}}
	case strings.ContainsAny(s, `/\`):
		return false, []error{&InvalidNameError{Value: n, Reason: "must not contain path separators"}}
	case s == "." || s == "..":
		return false, []error{&InvalidNameError{Value: n, Reason: "must not be a relative path element"}}
	case strings.ContainsRune(s, '\x00'):
		return false, []error{&InvalidNameError{Value: n, Reason: "must not contain null bytes"}}
	case platform.IsReservedDeviceName(s):
		return false, []error{&InvalidNameError{Value: n, Reason: "must not be a reserved device name"}}
	}
	return true, nil
}

// String returns the string representation of the Version.
func (v Version) String() string { return string(v) }

// IsZero reports whether the version is unspecified.
func (v Version) IsZero() bool { return v == "" }

// IsValid returns whether the Version is acceptable as a path element.
// The empty version is valid.
func (v Version) IsValid() (bool, []error) {
	s := string(v)
	if s == "" {
		return true, nil
	}
	if strings.TrimSpace(s) != s || strings.ContainsAny(s, "/\\ \t\n") || s == "." || s == ".." {
		return false, []error{&InvalidVersionError{Value: v}}
	}
	return true, nil
}

// Key returns the deduplication key of the reference (its name).
func (r Reference) Key() Name { return r.Name }

// String returns "name" or "name@version" when the version is set.
func (r Reference) String() string {
	if r.Version.IsZero() {
		return string(r.Name)
	}
	return string(r.Name) + "@" + string(r.Version)
}

// Validate checks both the name and the version.
func (r Reference) Validate() error {
	var errs []error
	if ok, nameErrs := r.Name.IsValid(); !ok {
		errs = append(errs, nameErrs...)
	}
	if ok, versionErrs := r.Version.IsValid(); !ok {
		errs = append(errs, versionErrs...)
	}
	return errors.Join(errs...)
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidName so callers can use errors.Is for programmatic detection.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid module version %q", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Compare orders references by name using ordinal (byte-wise) comparison.
// Names are case-sensitive: "Zeta" sorts before "alpha".
func Compare(a, b Reference) int {
	return cmp.Compare(a.Name, b.Name)
}

// Sorted returns a copy of refs ordered by name, with later duplicates of a
// name dropped. The first declaration of a name wins.
func Sorted(refs []Reference) []Reference {
	out := make([]Reference, 0, len(refs))
	seen := make(map[Name]bool, len(refs))
	for _, r := range refs {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	slices.SortStableFunc(out, Compare)
	return out
}

// SortNames sorts names in place using ordinal comparison.
func SortNames(names []Name) {
	slices.Sort(names)
}

// SPDX-License-Identifier: MPL-2.0

// Package render draws module graph snapshots for terminals: the forward
// dependency tree, the one-line listing, the reverse tree and the module
// detail panel. Styled output uses lipgloss; plain output has no escape
// sequences and indents with spaces.
package render

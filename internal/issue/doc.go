// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints; an Issue is a Markdown catalog entry rendered with
// glamour for the most common failures.
package issue

// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers: ModuleTree lays out module
// manifests and a shared cache on disk, and the Must* helpers fail the test
// on setup errors instead of returning them.
package testutil

// SPDX-License-Identifier: MPL-2.0

// Package refgraph builds the dependency graph of a root module.
//
// A Builder walks declared references depth first, resolving each distinct
// module name once through a Resolver. Resolved modules live in an arena
// (Graph.Nodes) keyed by name; the tree view produced by Graph.Tree marks
// repeated occurrences as aliases of the canonical node instead of copying
// them. BuildReverseIndex inverts the adjacency map into a "referenced by"
// index. A Session publishes the result of each successful load atomically.
package refgraph

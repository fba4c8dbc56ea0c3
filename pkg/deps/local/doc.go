// Package local resolves the dependency graph of a project from the packages
// already installed on disk.
//
// # Overview
//
// The [Walker] starts at the root manifest and follows every declared edge
// (runtime, optional, peer and bundled dependencies, plus devDependencies of
// the root only). Each name is resolved the way node resolves a bare module
// specifier: starting at the parent package's directory, walk the ancestors,
// skip directories that are themselves named node_modules, and probe
// <ancestor>/node_modules/<name>/package.json. The first hit is
// canonicalized with [filepath.EvalSymlinks] so hoisted, linked and nested
// copies are keyed by where they really live.
//
// # Deduplication
//
// A package is visited at most once. The walker claims the canonical
// directory in the [deps.Registry] before descending; a path that is already
// present stops the branch. This is the only cycle and diamond breaker, so
// there is no depth or fan-out limit.
//
// # Failures
//
// Failing to locate or read an optional dependency is logged at debug level
// and the edge is dropped. Any other failure rejects the whole walk with
// DEPENDENCY_NOT_FOUND and no registry is returned.
//
// # Workspaces
//
// The [Resolver] additionally expands the root's "workspaces" globs, walks
// every member concurrently, and merges the member registries into the root
// registry. Entries already present are never overwritten.
package local

// Package deps holds the dependency graph model shared by the resolution
// strategies.
//
// # Overview
//
// noscripts discovers every package reachable from a root package.json using
// one of two strategies, each implementing [Resolver]:
//
//   - [local]: walks the installed node_modules tree on disk
//   - [lockfile]: fetches every tarball listed in package-lock.json
//
// Both produce a [Registry], the canonical map from resolution path to
// resolved [Package]. The resolution path is the deduplication key: the same
// name and version installed at two locations are two entries, because npm
// may install several copies.
//
// # Registry
//
// A [Registry] is filled concurrently by many traversal branches.
// [Registry.Claim] is an atomic insert-if-absent; a branch that loses the
// claim for a path stops there, which is what collapses diamond dependencies
// and breaks cycles.
//
// Resolvers never return a partially built registry: on failure the registry
// is discarded and only the error is returned.
//
// # Ignoring Packages
//
// [Registry.RemoveIgnored] drops packages by manifest name and fails with
// IGNORE_LIST_MISMATCH if a requested name matched nothing, which usually
// means a stale or mistyped --ignore argument.
//
// # Edges
//
// [Edges] lists the dependency edges of a manifest: runtime, optional, peer
// and bundled dependencies always, dev dependencies only for the root.
//
// [local]: github.com/matzehuels/noscripts/pkg/deps/local
// [lockfile]: github.com/matzehuels/noscripts/pkg/deps/lockfile
package deps

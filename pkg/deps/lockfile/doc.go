// Package lockfile resolves the dependency graph of a project from its npm
// lockfile without installing anything.
//
// # Lockfiles
//
// [Load] reads package-lock.json, falling back to npm-shrinkwrap.json. Only
// lockfileVersion 2 and 3 carry the flat "packages" map this package relies
// on; other versions are rejected before any network activity.
//
// # Resolution
//
// Every entry except the root (""), links, and entries without a "resolved"
// URL becomes part of a fetch request. Entries that share a resolved URL
// share one request, so a tarball is downloaded once no matter how many
// locations install it. Each tarball is verified against its integrity
// string, extracted into a [Scratch] directory, and its manifest is
// registered once per location under "<lockfile>/<location>".
//
// Any failure rejects the whole resolution. There is no optional-dependency
// tolerance in this mode because the lockfile already records what npm
// decided to install.
package lockfile

// Package npm downloads package tarballs from an npm registry.
//
// # Overview
//
// Lockfiles record, for every installed package, the tarball URL it was
// resolved from and the Subresource Integrity digest of that tarball.
// [Client.FetchTarball] downloads the tarball, verifies the digest, and
// returns the verified bytes. Verified tarballs are cached by digest, so
// the same package version is downloaded once across all projects.
//
// # Registry Host
//
// "registry.npmjs.org" in a lockfile is a magic value meaning "the currently
// configured registry". [Client.ResolveURL] rewrites such URLs to the
// registry the client was created with.
//
// # Usage
//
//	client := npm.NewClient(npm.Options{Cache: c})
//	data, err := client.FetchTarball(ctx,
//	    "https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz",
//	    "sha512-v2kDEe57lecTulaDIuNTPy3Ry4gLGJ6Z1O3vE1krgXZNrsQ+LFTGHVxVjcXPs17LhbZVGedAJv8XZ1tvj5FvSg==")
//
// Integrity failures are never retried.
package npm

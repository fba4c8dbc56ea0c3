// Package manifest loads and normalizes npm package.json files.
//
// # Overview
//
// [Read] loads the package.json in a directory and returns an immutable
// [Manifest]. The raw content is normalized the way npm does before it runs
// lifecycle scripts, so that scripts npm would execute implicitly are visible
// to the analyzer:
//
//   - A package with a binding.gyp file and no install or preinstall script
//     gets an implied install script "node-gyp rebuild" (unless "gypfile"
//     is false).
//   - A package with a server.js file and no start script gets an implied
//     start script "node server.js".
//   - Non-string script values are dropped.
//   - "bundleDependencies" is accepted as an alias of "bundledDependencies",
//     and the value true means "every runtime dependency".
//   - "workspaces" is accepted as an array or as {"packages": [...]}.
//
// # Errors
//
// A missing package.json is reported with code
// [errors.ErrCodeManifestNotFound] so callers can decide whether the absence
// is fatal. Malformed content is reported with
// [errors.ErrCodeInvalidManifest] wrapping the decode error.
//
//	m, err := manifest.Read(dir)
//	if errors.Is(err, errors.ErrCodeManifestNotFound) {
//	    // not a package directory
//	}
//
// [errors.ErrCodeManifestNotFound]: github.com/matzehuels/noscripts/pkg/errors.ErrCodeManifestNotFound
// [errors.ErrCodeInvalidManifest]: github.com/matzehuels/noscripts/pkg/errors.ErrCodeInvalidManifest
package manifest

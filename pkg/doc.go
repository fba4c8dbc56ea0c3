// Package pkg holds the libraries behind the noscripts CLI.
//
// # Overview
//
// noscripts fails a build when any npm dependency of a project declares a
// lifecycle script that npm runs on install. The pkg directory is organized
// by concern:
//
//  1. [manifest], [deps] - package.json parsing and the package registry
//  2. [deps/lockfile], [deps/local] - the two resolution strategies
//  3. [integrations/npm], [tarball], [integrity] - fetching and verifying
//     registry tarballs
//  4. [analyzer] - lifecycle script detection
//  5. [scan], [report], [store] - orchestration, output and saved history
//  6. [cache], [config], [errors], [observability] - shared infrastructure
//
// # Architecture
//
//	package.json (found upwards from the project dir)
//	         ↓
//	    [deps/lockfile] registry fetch      [deps/local] node_modules walk
//	         ↓                                   ↓
//	    [deps] Registry (one per strategy, minus ignored names)
//	         ↓
//	    [analyzer] findings
//	         ↓
//	    [report] text or JSON, optionally saved to a [store]
//
// # Quick Start
//
//	runner := scan.NewRunner(
//	    lockfile.New(lockfile.Options{Fetcher: npm.NewClient(npm.Options{})}),
//	    local.New(local.Options{}),
//	    nil,
//	)
//	rep, err := runner.Run(ctx, scan.Options{Dir: ".", IncludeLocal: true})
//	if rep != nil {
//	    _ = report.WriteText(os.Stdout, rep)
//	}
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -tags integration ./pkg/...  # Include tests against registry.npmjs.org
//
// [manifest]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/manifest
// [deps]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/deps
// [deps/lockfile]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/deps/lockfile
// [deps/local]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/deps/local
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/integrations/npm
// [tarball]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/tarball
// [integrity]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/integrity
// [analyzer]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/analyzer
// [scan]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/scan
// [report]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/report
// [store]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/store
// [cache]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/noscripts/pkg/observability
package pkg

// Package integrations provides the shared HTTP client used to talk to
// package registries.
//
// # Client Pattern
//
// Registry clients embed [Client], which handles:
//   - default request headers (for example registry auth tokens)
//   - retries with exponential backoff for transient failures
//   - response caching through [cache.Cache]
//   - HTTP and cache events through [observability] hooks
//
// The only registry client today is [npm], which downloads and verifies
// package tarballs:
//
//	c := npm.NewClient(npm.Options{Cache: fileCache, Registry: "https://registry.npmjs.org"})
//	data, err := c.FetchTarball(ctx, url, "sha512-...")
//
// [npm]: github.com/matzehuels/noscripts/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/noscripts/pkg/cache.Cache
// [observability]: github.com/matzehuels/noscripts/pkg/observability
package integrations

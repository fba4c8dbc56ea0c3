// Package cache stores downloaded registry payloads between runs.
//
// Tarballs in a lockfile are content-addressed by their integrity string, so
// a cached copy keyed by that string can be reused across projects without
// ever being stale. Callers still re-verify the bytes after a hit.
//
// # Backends
//
//   - [FileCache]: one file per key under a directory (CLI default)
//   - [RedisCache]: shared cache for CI runners and servers
//   - [NullCache]: disables caching (--no-cache)
//
// # Keys
//
// Keys are built by a [Keyer]. [NewScopedKeyer] prefixes every key so that
// several tools or registries can share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss
	// (ok=false) and not an error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

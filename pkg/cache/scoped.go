package cache

// ScopedKeyer wraps a Keyer with a prefix so several registries can share one
// backend without colliding.
//
// Example usage:
//
//	// Tarballs from a private registry never mix with public ones
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "registry:npm.internal:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TarballKey generates a prefixed key for tarball caching.
func (k *ScopedKeyer) TarballKey(integrity string) string {
	return k.prefix + k.inner.TarballKey(integrity)
}

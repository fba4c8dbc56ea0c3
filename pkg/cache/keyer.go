package cache

// Keyer builds cache keys for the payloads noscripts stores.
type Keyer interface {
	// TarballKey returns the key for a package tarball with the given
	// integrity string.
	TarballKey(integrity string) string
}

// DefaultKeyer is the unscoped Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TarballKey hashes the integrity string so keys have a fixed length and
// contain no characters special to any backend.
func (DefaultKeyer) TarballKey(integrity string) string {
	return hashKey("tarball", integrity)
}

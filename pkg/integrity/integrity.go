// Package integrity verifies Subresource Integrity strings as recorded in npm
// lockfiles ("sha512-<base64>", optionally several space-separated hashes).
package integrity

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"hash"
	"strings"

	"github.com/matzehuels/noscripts/pkg/errors"
)

// Supported algorithms, weakest first.
var algorithms = []struct {
	name string
	new  func() hash.Hash
}{
	{"sha1", sha1.New},
	{"sha256", sha256.New},
	{"sha384", sha512.New384},
	{"sha512", sha512.New},
}

// Hash is a single algorithm/digest pair from an SRI string.
type Hash struct {
	Algorithm string
	Digest    []byte
}

// String returns the SRI form "<algorithm>-<base64 digest>".
func (h Hash) String() string {
	return h.Algorithm + "-" + base64.StdEncoding.EncodeToString(h.Digest)
}

// Parse returns the strongest supported hash in sri. Unknown algorithms and
// "?options" suffixes are ignored.
func Parse(sri string) (Hash, error) {
	best, bestRank := Hash{}, -1
	for _, field := range strings.Fields(sri) {
		algo, digest, ok := strings.Cut(field, "-")
		if !ok {
			continue
		}
		digest, _, _ = strings.Cut(digest, "?")
		rank := rankOf(algo)
		if rank <= bestRank {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(digest)
		if err != nil {
			return Hash{}, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "malformed %s digest in integrity %q", algo, sri)
		}
		best, bestRank = Hash{Algorithm: algo, Digest: raw}, rank
	}
	if bestRank < 0 {
		return Hash{}, errors.New(errors.ErrCodeInvalidLockfile, "no supported hash in integrity %q", sri)
	}
	return best, nil
}

// Verify checks data against the strongest hash in sri and fails with
// INTEGRITY_MISMATCH when the digests differ.
func Verify(data []byte, sri string) error {
	want, err := Parse(sri)
	if err != nil {
		return err
	}
	got := Sum(want.Algorithm, data)
	if subtle.ConstantTimeCompare(got.Digest, want.Digest) != 1 {
		return errors.New(errors.ErrCodeIntegrityMismatch,
			"integrity check failed: expected %s, got %s", want, got)
	}
	return nil
}

// Sum computes the hash of data with the named algorithm. It panics on an
// unsupported algorithm.
func Sum(algorithm string, data []byte) Hash {
	rank := rankOf(algorithm)
	if rank < 0 {
		panic("integrity: unsupported algorithm " + algorithm)
	}
	h := algorithms[rank].new()
	h.Write(data)
	return Hash{Algorithm: algorithm, Digest: h.Sum(nil)}
}

func rankOf(algo string) int {
	for i, a := range algorithms {
		if a.name == algo {
			return i
		}
	}
	return -1
}

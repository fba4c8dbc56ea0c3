package lockfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/noscripts/pkg/errors"
)

// Scratch is the temporary tree tarballs are extracted into. It is removed
// by Close whether or not resolution succeeded.
type Scratch struct {
	Root string
}

// NewScratch prepares <tempDir>/noscripts/test-<name>, removing leftovers of
// an earlier run first. An empty tempDir uses os.TempDir.
func NewScratch(tempDir, name string) (*Scratch, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	root := filepath.Join(tempDir, "noscripts", "test-"+sanitize(name))
	if err := os.RemoveAll(root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to clean scratch directory %s", root)
	}
	if err := os.MkdirAll(filepath.Join(root, "packages"), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to create scratch directory %s", root)
	}
	return &Scratch{Root: root}, nil
}

// PackageDir returns the extraction directory for a lockfile location. The
// first "node_modules/" is dropped.
func (s *Scratch) PackageDir(location string) string {
	rel := strings.Replace(location, "node_modules/", "", 1)
	return filepath.Join(s.Root, "packages", filepath.FromSlash(rel))
}

// Close removes the scratch tree.
func (s *Scratch) Close() error {
	return os.RemoveAll(s.Root)
}

// sanitize makes a package name usable as a single path segment.
func sanitize(name string) string {
	name = strings.TrimPrefix(name, "@")
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, name)
	if strings.Trim(out, ".") == "" {
		return "unnamed"
	}
	return out
}

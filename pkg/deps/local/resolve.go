package local

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

const nodeModules = "node_modules"

// lookup finds the installed directory of name as seen from fromDir, using
// node's node_modules lookup. The result is canonical.
func lookup(name, fromDir string) (string, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return "", err
	}

	rel := filepath.FromSlash(name)
	for dir := fromDir; ; {
		if filepath.Base(dir) != nodeModules {
			candidate := filepath.Join(dir, nodeModules, rel)
			if info, err := os.Stat(filepath.Join(candidate, manifest.FileName)); err == nil && !info.IsDir() {
				resolved, err := filepath.EvalSymlinks(candidate)
				if err != nil {
					return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to resolve %s", candidate)
				}
				return resolved, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New(errors.ErrCodeNotFound, "cannot find module %q from %s", name, fromDir)
}

package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/noscripts/pkg/deps"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

// Options configures the local resolver.
type Options struct {
	Logger *log.Logger
}

// Resolver implements deps.Resolver over installed node_modules trees,
// including npm workspaces.
type Resolver struct {
	walker *Walker
	logger *log.Logger
}

// New creates a local Resolver.
func New(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resolver{walker: NewWalker(opts.Logger), logger: opts.Logger}
}

// Name returns "local".
func (r *Resolver) Name() string { return "local" }

// Resolve walks root and, when it declares workspaces, every workspace
// member. Member registries are merged into the root registry without
// overwriting existing entries. Any failure is fatal.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.Manifest) (*deps.Registry, error) {
	reg, err := r.walker.Walk(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(root.Workspaces) == 0 {
		return reg, nil
	}

	members, err := expandWorkspaces(root.Dir, root.Workspaces)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("expanded workspaces", "root", root.Ref(), "members", len(members))

	results := make([]*deps.Registry, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, dir := range members {
		g.Go(func() error {
			m, err := manifest.Read(dir)
			if err != nil {
				return err
			}
			memberReg, err := r.walker.Walk(gctx, m)
			if err != nil {
				return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "failed to resolve workspace %s", dir)
			}
			results[i] = memberReg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, memberReg := range results {
		reg.Merge(memberReg)
	}
	return reg, nil
}

// expandWorkspaces returns the sorted member directories matched by globs,
// relative to rootDir. Patterns starting with "!" exclude matches; matches
// without a package.json are ignored.
func expandWorkspaces(rootDir string, globs []string) ([]string, error) {
	include := make(map[string]bool)
	var excludes []string

	for _, pattern := range globs {
		if neg, ok := strings.CutPrefix(pattern, "!"); ok {
			excludes = append(excludes, neg)
			continue
		}
		matches, err := globDirs(rootDir, pattern)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid workspace pattern %q", pattern)
		}
		for _, dir := range matches {
			if info, err := os.Stat(filepath.Join(dir, manifest.FileName)); err == nil && !info.IsDir() {
				include[filepath.Clean(dir)] = true
			}
		}
	}

	for _, pattern := range excludes {
		matches, err := globDirs(rootDir, pattern)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid workspace pattern %q", "!"+pattern)
		}
		for _, dir := range matches {
			delete(include, filepath.Clean(dir))
		}
	}

	out := make([]string, 0, len(include))
	for dir := range include {
		out = append(out, dir)
	}
	slices.Sort(out)
	return out, nil
}

// globDirs returns the paths below rootDir matched by a slash-separated
// workspace pattern. A "**" segment matches any number of directories,
// node_modules excluded; other segments follow filepath.Match.
func globDirs(rootDir, pattern string) ([]string, error) {
	pattern = strings.TrimSuffix(pattern, "/")
	segs := strings.Split(pattern, "/")
	if !slices.Contains(segs, "**") {
		return filepath.Glob(filepath.Join(rootDir, filepath.FromSlash(pattern)))
	}

	seen := make(map[string]bool)
	if err := matchSegments(rootDir, segs, seen); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for dir := range seen {
		out = append(out, dir)
	}
	slices.Sort(out)
	return out, nil
}

func matchSegments(base string, segs []string, out map[string]bool) error {
	if len(segs) == 0 {
		out[filepath.Clean(base)] = true
		return nil
	}

	seg, rest := segs[0], segs[1:]
	switch seg {
	case "", ".":
		return matchSegments(base, rest, out)
	case "**":
		return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == base {
					return nil
				}
				return fs.SkipDir
			}
			if !d.IsDir() {
				return nil
			}
			if path != base && d.Name() == "node_modules" {
				return fs.SkipDir
			}
			return matchSegments(path, rest, out)
		})
	}

	if _, err := filepath.Match(seg, ""); err != nil {
		return err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if ok, _ := filepath.Match(seg, e.Name()); !ok {
			continue
		}
		if err := matchSegments(filepath.Join(base, e.Name()), rest, out); err != nil {
			return err
		}
	}
	return nil
}

package local

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/noscripts/pkg/deps"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
)

// Walker discovers installed packages reachable from a root manifest.
type Walker struct {
	logger *log.Logger
}

// NewWalker creates a Walker. A nil logger discards output.
func NewWalker(logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Walker{logger: logger}
}

// Walk registers root at its canonical directory and every package reachable
// from it. Sibling edges are resolved concurrently. On error the partial
// registry is discarded and nil is returned.
func (w *Walker) Walk(ctx context.Context, root *manifest.Manifest) (*deps.Registry, error) {
	dir, err := canonicalDir(root.Dir)
	if err != nil {
		return nil, err
	}

	reg := deps.NewRegistry()
	rootPkg := &deps.Package{Manifest: root, Path: dir}
	reg.Claim(rootPkg)

	g, ctx := errgroup.WithContext(ctx)
	w.visit(ctx, g, reg, rootPkg, true)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.logger.Debug("walked installed dependencies", "root", root.Ref(), "packages", reg.Len())
	return reg, nil
}

// visit schedules one goroutine per edge of p on g.
func (w *Walker) visit(ctx context.Context, g *errgroup.Group, reg *deps.Registry, p *deps.Package, root bool) {
	for _, edge := range deps.Edges(p.Manifest, root) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			child, err := locate(edge.Name, p.Path)
			if err != nil {
				if !edge.Required {
					w.logger.Debug("skipping optional dependency",
						"name", edge.Name, "parent", p.Manifest.Ref(), "kind", edge.Kind, "err", err)
					return nil
				}
				return errors.Wrap(errors.ErrCodeDependencyNotFound, err,
					"failed to locate dependency %s", edge.Name)
			}

			if !reg.Claim(child) {
				return nil
			}
			w.visit(ctx, g, reg, child, false)
			return nil
		})
	}
}

// locate resolves name from the package at parentDir and reads its manifest.
func locate(name, parentDir string) (*deps.Package, error) {
	dir, err := lookup(name, parentDir)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Read(dir)
	if err != nil {
		return nil, err
	}
	return &deps.Package{Manifest: m, Path: dir}, nil
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid directory %s", dir)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to resolve %s", abs)
	}
	return resolved, nil
}

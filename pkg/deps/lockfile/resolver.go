package lockfile

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/noscripts/pkg/deps"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
	"github.com/matzehuels/noscripts/pkg/tarball"
)

// PathPrefix marks resolution paths of packages materialized from a lockfile.
const PathPrefix = "<lockfile>/"

// Fetcher downloads a tarball and verifies it against an SRI string.
type Fetcher interface {
	FetchTarball(ctx context.Context, url, integrity string) ([]byte, error)
}

// Options configures the lockfile resolver.
type Options struct {
	Fetcher     Fetcher
	TempDir     string // parent of the scratch tree; empty uses os.TempDir
	Concurrency int    // max concurrent fetches; zero is unbounded
	Logger      *log.Logger
}

// Resolver implements deps.Resolver from package-lock.json or
// npm-shrinkwrap.json.
type Resolver struct {
	opts Options
}

// New creates a lockfile Resolver.
func New(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resolver{opts: opts}
}

// Name returns "lockfile".
func (r *Resolver) Name() string { return "lockfile" }

// Resolve loads the lockfile next to root and resolves it.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.Manifest) (*deps.Registry, error) {
	lf, err := Load(root.Dir)
	if err != nil {
		return nil, err
	}
	return r.ResolveLockfile(ctx, root, lf)
}

// ResolveLockfile fetches every package recorded in lf and registers one
// package per install location. The scratch tree is removed before it
// returns.
func (r *Resolver) ResolveLockfile(ctx context.Context, root *manifest.Manifest, lf *Lockfile) (*deps.Registry, error) {
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	reqs, err := lf.Requests()
	if err != nil {
		return nil, err
	}
	if len(reqs) > 0 && r.opts.Fetcher == nil {
		return nil, errors.New(errors.ErrCodeInternal, "lockfile resolver has no fetcher")
	}

	scratch, err := NewScratch(r.opts.TempDir, root.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			r.opts.Logger.Warn("failed to remove scratch directory", "dir", scratch.Root, "err", err)
		}
	}()

	r.opts.Logger.Infof("Fetching %d tarballs...", len(reqs))

	reg := deps.NewRegistry()
	g, gctx := errgroup.WithContext(ctx)
	if r.opts.Concurrency > 0 {
		g.SetLimit(r.opts.Concurrency)
	}
	for _, req := range reqs {
		g.Go(func() error {
			return r.materialize(gctx, scratch, reg, req)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.opts.Logger.Debug("resolved lockfile", "file", lf.FileName(), "packages", reg.Len())
	return reg, nil
}

// materialize fetches one tarball, extracts it for its first location, and
// registers the manifest for every location sharing the URL.
func (r *Resolver) materialize(ctx context.Context, scratch *Scratch, reg *deps.Registry, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.opts.Fetcher.FetchTarball(ctx, req.URL, req.Integrity)
	if err != nil {
		return err
	}

	dir := scratch.PackageDir(req.Locations[0])
	if err := tarball.Extract(data, dir); err != nil {
		return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeFetchFailed), err, "failed to extract %s", req.URL)
	}
	m, err := manifest.Read(dir)
	if err != nil {
		return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidManifest), err, "failed to read manifest of %s", req.Locations[0])
	}

	for _, loc := range req.Locations {
		reg.Claim(&deps.Package{Manifest: m, Path: PathPrefix + loc})
	}
	r.opts.Logger.Debug("fetched", "package", m.Ref(), "locations", len(req.Locations))
	return nil
}

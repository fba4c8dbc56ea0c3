// Package scan runs the resolution strategies for a project and analyzes the
// packages they find.
//
// A scan reads the nearest package.json at or above the project directory,
// then runs the lockfile strategy (unless offline) followed by the local
// strategy (when requested or offline). Each strategy builds its own
// registry, drops ignored packages and is analyzed on its own. The first
// failing strategy ends the scan.
package scan

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/noscripts/pkg/analyzer"
	"github.com/matzehuels/noscripts/pkg/deps"
	"github.com/matzehuels/noscripts/pkg/deps/local"
	"github.com/matzehuels/noscripts/pkg/deps/lockfile"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/manifest"
	"github.com/matzehuels/noscripts/pkg/observability"
	"github.com/matzehuels/noscripts/pkg/report"
)

// Options selects what a scan does.
type Options struct {
	Dir          string   // project directory; package.json is searched upwards from here
	Ignore       []string // package names to drop before analysis
	IncludeLocal bool     // also walk installed node_modules
	Offline      bool     // skip the lockfile strategy; implies IncludeLocal
	Compare      bool     // record names seen by only one strategy
}

// runsLockfile reports whether the lockfile strategy is selected.
func (o Options) runsLockfile() bool { return !o.Offline }

// runsLocal reports whether the local strategy is selected.
func (o Options) runsLocal() bool { return o.IncludeLocal || o.Offline }

// Runner holds the two strategies. It keeps no per-scan state, so one
// Runner can serve concurrent scans of different projects.
type Runner struct {
	Lockfile *lockfile.Resolver
	Local    *local.Resolver
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(lf *lockfile.Resolver, loc *local.Resolver, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Lockfile: lf, Local: loc, Logger: logger}
}

// Run scans the project in opts.Dir. When a root manifest was found the
// report is returned even on error: it holds every strategy that completed
// and records the error.
func (r *Runner) Run(ctx context.Context, opts Options) (*report.Report, error) {
	root, err := manifest.ReadUp(opts.Dir)
	if err != nil {
		return nil, err
	}
	rep := report.New(root)
	if err := r.run(ctx, opts, root, rep); err != nil {
		rep.Fail(err)
		return rep, err
	}
	return rep, nil
}

func (r *Runner) run(ctx context.Context, opts Options, root *manifest.Manifest, rep *report.Report) error {
	var lockNames, localNames []string

	if opts.runsLockfile() {
		if r.Lockfile == nil {
			return errors.New(errors.ErrCodeInternal, "lockfile strategy selected but not configured")
		}
		lf, err := lockfile.Load(root.Dir)
		if err != nil {
			return err
		}
		r.Logger.Infof("Analyzing %s of package %q and fetching packages from the registry...", lf.FileName(), root.Name)

		s, names, err := r.runStrategy(ctx, r.Lockfile.Name(), lf.FileName(), root, opts.Ignore,
			func(ctx context.Context) (*deps.Registry, error) {
				return r.Lockfile.ResolveLockfile(ctx, root, lf)
			})
		if err != nil {
			return err
		}
		rep.Add(s)
		lockNames = names
	}

	if opts.runsLocal() {
		if r.Local == nil {
			return errors.New(errors.ErrCodeInternal, "local strategy selected but not configured")
		}
		r.Logger.Infof("Analyzing %s of package %q and locally installed dependencies...", manifest.FileName, root.Name)

		s, names, err := r.runStrategy(ctx, r.Local.Name(), manifest.FileName, root, opts.Ignore,
			func(ctx context.Context) (*deps.Registry, error) {
				return r.Local.Resolve(ctx, root)
			})
		if err != nil {
			return err
		}
		rep.Add(s)
		localNames = names
	}

	if opts.Compare && opts.runsLockfile() && opts.runsLocal() {
		rep.Comparison = report.Compare(lockNames, localNames)
	}
	return nil
}

func (r *Runner) runStrategy(
	ctx context.Context,
	name, source string,
	root *manifest.Manifest,
	ignore []string,
	resolve func(context.Context) (*deps.Registry, error),
) (report.Strategy, []string, error) {
	hooks := observability.Scan()
	hooks.OnResolveStart(ctx, name, root.Ref())

	start := time.Now()
	reg, err := resolve(ctx)
	elapsed := time.Since(start)

	packages := 0
	if reg != nil {
		packages = reg.Len()
	}
	hooks.OnResolveComplete(ctx, name, root.Ref(), packages, elapsed, err)
	if err != nil {
		return report.Strategy{}, nil, err
	}
	r.Logger.Debug("resolved", "strategy", name, "packages", packages, "duration", elapsed.Round(time.Millisecond))

	ignored, err := reg.RemoveIgnored(ignore)
	if err != nil {
		return report.Strategy{}, nil, err
	}
	r.Logger.Infof("(ignoring %d packages)", ignored)

	r.Logger.Infof("Analyzing %d packages", reg.Len())
	res := analyzer.Analyze(reg)
	hooks.OnAnalyzeComplete(ctx, name, len(res.Packages), res.Findings)

	return report.NewStrategy(name, source, res, ignored, elapsed), reg.Names(), nil
}

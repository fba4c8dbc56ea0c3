package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/noscripts/pkg/config"
	"github.com/matzehuels/noscripts/pkg/errors"
	"github.com/matzehuels/noscripts/pkg/report"
	"github.com/matzehuels/noscripts/pkg/scan"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// scanOpts holds the scan flags. Flags that were set override the config
// file.
type scanOpts struct {
	ignore       []string
	includeLocal bool
	offline      bool
	registry     string
	noCache      bool
	format       string
	save         bool
}

func (o *scanOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&o.ignore, "ignore", nil, "package names to skip (replaces the config list)")
	f.BoolVar(&o.includeLocal, "include-local", false, "also analyze the installed node_modules tree")
	f.BoolVar(&o.offline, "offline", false, "only analyze node_modules; do not contact the registry")
	f.StringVar(&o.registry, "registry", "", "npm registry URL (default: $NPM_CONFIG_REGISTRY or registry.npmjs.org)")
	f.BoolVar(&o.noCache, "no-cache", false, "download tarballs without the cache")
	f.StringVarP(&o.format, "format", "f", formatText, "output format: text or json")
	f.BoolVar(&o.save, "save", false, "save the report to the report store")
}

// apply overrides cfg with the flags set on cmd.
func (o *scanOpts) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("ignore") {
		cfg.Ignore = o.ignore
	}
	if f.Changed("include-local") {
		cfg.IncludeLocal = o.includeLocal
	}
	if f.Changed("offline") {
		cfg.Offline = o.offline
	}
	if f.Changed("registry") {
		cfg.Registry = o.registry
	}
	return cfg.Validate()
}

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s or %s)", format, formatText, formatJSON)
}

// runScan scans the project in args[0] (default ".") and writes the report
// to c.Stdout. A scan that finds scripts or fails returns an *ExitError
// after the report was written.
func (c *CLI) runScan(cmd *cobra.Command, args []string, o *scanOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", dir)
	}
	if err := validFormat(o.format); err != nil {
		return err
	}

	cfg, err := c.loadConfig(dir)
	if err != nil {
		return err
	}
	if err := o.apply(cmd, cfg); err != nil {
		return err
	}

	runner, closeCache, err := c.newRunner(ctx, cfg, o.noCache)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			c.Logger.Debug("close cache", "error", err)
		}
	}()

	prog := newProgress(c.Logger)
	rep, err := runner.Run(ctx, scan.Options{
		Dir:          dir,
		Ignore:       cfg.Ignore,
		IncludeLocal: cfg.IncludeLocal,
		Offline:      cfg.Offline,
		Compare:      c.verbose(),
	})
	if rep == nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		for _, line := range errors.Chain(err) {
			c.Logger.Debug("scan failed", "cause", line)
		}
	}
	prog.done("Scan finished")

	if o.save {
		c.saveReport(ctx, cfg, rep)
	}

	if o.format == formatJSON {
		if werr := report.WriteJSON(c.Stdout, rep); werr != nil {
			return werr
		}
	} else if werr := report.WriteText(c.Stdout, rep); werr != nil {
		return werr
	}

	if rep.Failed() {
		return &ExitError{Code: rep.ExitCode(), Err: err}
	}
	return nil
}

// saveReport stores rep. A store failure is logged but does not change the
// scan outcome.
func (c *CLI) saveReport(ctx context.Context, cfg *config.Config, rep *report.Report) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := newStore(ctx, cfg)
	if err != nil {
		c.Logger.Warn("could not open report store", "error", err)
		return
	}
	defer st.Close()

	if err := st.Save(ctx, rep); err != nil {
		c.Logger.Warn("could not save report", "error", err)
		return
	}
	c.Logger.Info("saved report", "id", rep.ID)
}

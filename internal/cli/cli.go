// Package cli implements the noscripts command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/noscripts/pkg/buildinfo"
	"github.com/matzehuels/noscripts/pkg/cache"
	"github.com/matzehuels/noscripts/pkg/config"
	"github.com/matzehuels/noscripts/pkg/deps/local"
	"github.com/matzehuels/noscripts/pkg/deps/lockfile"
	"github.com/matzehuels/noscripts/pkg/integrations/npm"
	"github.com/matzehuels/noscripts/pkg/scan"
	"github.com/matzehuels/noscripts/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "noscripts"

	// redisPrefix namespaces every key the Redis cache writes.
	redisPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Stdout io.Writer

	configPath string
}

// New creates a new CLI instance that logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Stdout: os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// verbose reports whether debug logging is on.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// ExitError carries a non-zero exit status for an outcome that was already
// written to the output. main exits with Code without printing Err again.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// RootCommand creates the root command. Running it without a subcommand
// scans a project.
func (c *CLI) RootCommand() *cobra.Command {
	opts := scanOpts{format: formatText}

	root := &cobra.Command{
		Use:   "noscripts [projectDir]",
		Short: "Fail if any npm dependency runs lifecycle scripts on install",
		Long: `noscripts checks every npm dependency of a project and fails if any of them
declares a lifecycle script that npm executes automatically (preinstall,
install, postinstall, preuninstall, postuninstall).

By default the packages listed in package-lock.json (or npm-shrinkwrap.json)
are downloaded from the registry and inspected. --include-local also walks the
installed node_modules tree; --offline walks only node_modules.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd, args, &opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./.noscripts.toml, then ~/.config/noscripts/config.toml)")
	opts.register(root)

	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.reportsCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config and Runner Factory
// =============================================================================

// loadConfig reads the config for projectDir, honoring --config.
func (c *CLI) loadConfig(projectDir string) (*config.Config, error) {
	cfg, err := config.Load(c.configPath, projectDir)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	return cfg, nil
}

// newRunner builds the scan runner and its tarball cache from cfg. The
// returned func closes the cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*scan.Runner, func() error, error) {
	tarballs, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}

	client := npm.NewClient(npm.Options{
		Cache:    tarballs,
		Keyer:    registryKeyer(cfg.Registry),
		TTL:      cfg.Cache.TTL.Duration,
		Registry: cfg.Registry,
		Token:    cfg.Token,
		Timeout:  cfg.FetchTimeout.Duration,
	})
	c.Logger.Debug("using registry", "url", client.Registry())

	runner := scan.NewRunner(
		lockfile.New(lockfile.Options{
			Fetcher:     client,
			Concurrency: cfg.Concurrency,
			Logger:      c.Logger,
		}),
		local.New(local.Options{Logger: c.Logger}),
		c.Logger,
	)
	return runner, tarballs.Close, nil
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, redisPrefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// registryKeyer scopes cache keys by registry host when a registry other than
// the public one is configured.
func registryKeyer(registry string) cache.Keyer {
	if registry == "" || registry == npm.DefaultRegistry {
		return cache.NewDefaultKeyer()
	}
	u, err := url.Parse(registry)
	if err != nil || u.Host == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), "registry:"+u.Host+":")
}

// newStore opens the report store selected by cfg.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend == config.StoreMongo {
		spinner := newSpinnerWithContext(ctx, "Connecting to report store...")
		spinner.Start()
		st, err := store.NewMongoStore(ctx, cfg.Store.URI, cfg.Store.Database)
		spinner.Stop()
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	dir, err := reportsDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("get reports dir: %w", err)
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the tarball cache directory: cache.dir from the config,
// else the XDG standard (~/.cache/noscripts/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// reportsDir returns the report directory: store.dir from the config, else
// the XDG standard (~/.local/share/noscripts/reports/).
func reportsDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Store.Dir != "" {
		return cfg.Store.Dir, nil
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "reports"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "reports"), nil
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

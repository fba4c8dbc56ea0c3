// Package config loads noscripts settings from a TOML file.
//
// A file is looked up in this order, and the first one found wins:
//
//  1. the path given with --config
//  2. <projectDir>/.noscripts.toml
//  3. $XDG_CONFIG_HOME/noscripts/config.toml (~/.config when unset)
//
// When no file exists the defaults apply. NPM_CONFIG_REGISTRY overrides the
// registry key, and command-line flags override everything.
//
// Example:
//
//	ignore = ["esbuild"]
//	include_local = true
//	registry = "https://registry.npmjs.org"
//	fetch_timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/noscripts/pkg/errors"
)

const (
	appName = "noscripts"

	// ProjectFileName is the per-project config file.
	ProjectFileName = ".noscripts.toml"

	// RegistryEnv overrides the registry key, as npm itself honors it.
	RegistryEnv = "NPM_CONFIG_REGISTRY"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Store backends.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// Defaults.
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultCacheTTL     = 30 * 24 * time.Hour
	DefaultDatabase     = appName
)

// Duration is a time.Duration decoded from strings like "30s" or "1h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds every setting a scan needs.
type Config struct {
	Ignore       []string `toml:"ignore"`
	IncludeLocal bool     `toml:"include_local"`
	Offline      bool     `toml:"offline"`
	Registry     string   `toml:"registry"`
	Token        string   `toml:"token"`
	Concurrency  int      `toml:"concurrency"`
	FetchTimeout Duration `toml:"fetch_timeout"`

	Cache CacheConfig `toml:"cache"`
	Store StoreConfig `toml:"store"`

	// Path is the file the config was read from; empty for defaults.
	Path string `toml:"-"`
}

// CacheConfig selects the tarball cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	TTL      Duration `toml:"ttl"`
	RedisURL string   `toml:"redis_url"`
}

// StoreConfig selects where saved reports live.
type StoreConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		FetchTimeout: Duration{DefaultFetchTimeout},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     Duration{DefaultCacheTTL},
		},
		Store: StoreConfig{
			Backend:  StoreFile,
			Database: DefaultDatabase,
		},
	}
}

// Load finds and reads the config file for projectDir. explicit, when set,
// must exist.
func Load(explicit, projectDir string) (*Config, error) {
	path, err := locate(explicit, projectDir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data on top of the defaults and validates the result.
// Environment overrides are not applied.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config")
	}
	if err := checkUndecoded(md, "config"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UserPath returns the per-user config file path.
func UserPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

func locate(explicit, projectDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "cannot read config file %s", explicit)
		}
		return explicit, nil
	}

	candidates := []string{filepath.Join(projectDir, ProjectFileName)}
	if user, err := UserPath(); err == nil {
		candidates = append(candidates, user)
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config file %s", path)
	}
	if err := checkUndecoded(md, path); err != nil {
		return err
	}
	cfg.Path = path
	return nil
}

// checkUndecoded rejects keys the Config type does not know.
func checkUndecoded(md toml.MetaData, source string) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	slices.Sort(keys)
	return errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", source, strings.Join(keys, ", "))
}

func (c *Config) applyEnv() {
	for _, name := range []string{RegistryEnv, strings.ToLower(RegistryEnv)} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.Registry = v
			return
		}
	}
}

// Validate checks every setting and returns an INVALID_CONFIG error naming
// the first bad key.
func (c *Config) Validate() error {
	if c.Registry != "" {
		if err := errors.ValidateURL(c.Registry); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid registry")
		}
	}
	for _, name := range c.Ignore {
		if err := errors.ValidateNpmPackageName(name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid ignore entry %q", name)
		}
	}
	if c.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.FetchTimeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "fetch_timeout must not be negative")
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache.backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}

	switch c.Store.Backend {
	case StoreFile:
	case StoreMongo:
		if c.Store.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.uri is required for the mongo backend")
		}
		if c.Store.Database == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.database must not be empty")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store.backend %q (want file or mongo)", c.Store.Backend)
	}
	return nil
}

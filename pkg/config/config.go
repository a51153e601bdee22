// Package config loads and validates the scanner's TOML configuration: the
// repository snapshot location, the profile set, check selection, and the
// cache backend.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/parona-source/pkgcheck/pkg/errors"
	"github.com/parona-source/pkgcheck/pkg/profile"
)

// Check names accepted in the [checks] section.
const (
	CheckVisibility = "visibility"
	CheckImlate     = "imlate"
)

// Cache backend names accepted in the [cache] section.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNull  = "null"
)

// Config is the root scanner configuration.
type Config struct {
	// Repo is the path to the repository snapshot: a TOML file or a
	// directory of TOML files.
	Repo string `toml:"repo"`

	// Profiles declares the profile set the solvability check runs
	// against. At least one profile is required.
	Profiles []profile.Config `toml:"profiles"`

	Checks CheckConfig  `toml:"checks"`
	Imlate ImlateConfig `toml:"imlate"`
	Cache  CacheConfig  `toml:"cache"`
}

// CheckConfig selects which checks run. The zero value enables only the
// visibility check.
type CheckConfig struct {
	Visibility *bool `toml:"visibility"`
	Imlate     bool  `toml:"imlate"`
}

// ImlateConfig configures the stable-arch lag check.
type ImlateConfig struct {
	// Targets are the arches evaluated for lag.
	Targets []string `toml:"targets"`

	// Sources are the reference arches whose stable keywords qualify a
	// version for stabling elsewhere.
	Sources []string `toml:"sources"`
}

// CacheConfig selects and parameterizes the cache backend. The zero value
// disables caching.
type CacheConfig struct {
	// Backend is one of "file", "redis", or "null". Empty means "null".
	Backend string `toml:"backend"`

	// Dir is the cache directory for the file backend.
	Dir string `toml:"dir"`

	// Addr, Password, and DB configure the redis backend.
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	// TTL bounds entry lifetime, e.g. "24h". Empty means no expiry.
	TTL string `toml:"ttl"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems. Profile atom
// syntax is validated later by profile construction.
func (c *Config) Validate() error {
	if c.Repo == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "repo path is required")
	}
	if len(c.Profiles) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one profile is required")
	}
	if c.Checks.Imlate && len(c.Imlate.Targets) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "imlate check enabled without target arches")
	}
	if c.Checks.Imlate && len(c.Imlate.Sources) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "imlate check enabled without source arches")
	}
	switch c.Cache.Backend {
	case "", CacheBackendNull, CacheBackendFile, CacheBackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis cache backend requires addr")
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// VisibilityEnabled reports whether the visibility check runs. It defaults
// to enabled when the config does not mention it.
func (c *Config) VisibilityEnabled() bool {
	return c.Checks.Visibility == nil || *c.Checks.Visibility
}

// EnabledChecks returns the names of the enabled checks in a fixed order.
func (c *Config) EnabledChecks() []string {
	var names []string
	if c.VisibilityEnabled() {
		names = append(names, CheckVisibility)
	}
	if c.Checks.Imlate {
		names = append(names, CheckImlate)
	}
	return names
}

// CacheTTL parses the configured cache TTL. An empty setting yields zero.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache ttl %q", c.Cache.TTL)
	}
	return d, nil
}

// Package cli implements the pkgcheck command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/parona-source/pkgcheck/pkg/buildinfo"
	"github.com/parona-source/pkgcheck/pkg/cache"
	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/scan"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "pkgcheck"

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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pkgcheck",
		Short:        "pkgcheck finds unsolvable dependencies in ebuild repositories",
		Long:         `pkgcheck scans an ebuild repository snapshot and reports dependency atoms that nothing satisfies: nonexistent packages, per-profile visibility failures, live VCS versions leaking into stable profiles, and versions lagging behind their stable arches.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a scan runner with the cache backend the config selects.
func (c *CLI) newRunner(cmd *cobra.Command, cfg *config.Config, noCache bool) (*scan.Runner, error) {
	backend, err := newCache(cmd, cfg, noCache)
	if err != nil {
		return nil, err
	}
	// Scope every key under the application name so a shared backend (the
	// redis case) can host other tools without collisions.
	keyer := cache.NewScopedKeyer(nil, appName+":")
	return scan.NewRunner(backend, keyer, c.Logger), nil
}

func newCache(cmd *cobra.Command, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendNull, "":
		return cache.NewNullCache(), nil
	case config.CacheBackendRedis:
		return cache.NewRedisCache(cmd.Context(), cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pkgcheck/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

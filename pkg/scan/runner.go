// Package scan orchestrates a whole repository scan: loading the snapshot,
// building the profile set, running the enabled checks over every package,
// and caching finished report streams.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/parona-source/pkgcheck/pkg/cache"
	"github.com/parona-source/pkgcheck/pkg/check"
	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/depset"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/observability"
	"github.com/parona-source/pkgcheck/pkg/profile"
	"github.com/parona-source/pkgcheck/pkg/repo"
	"github.com/parona-source/pkgcheck/pkg/report"
)

// Options tunes one scan execution.
type Options struct {
	// Refresh bypasses the scan report cache: checks run even when a
	// cached stream exists, and the fresh result replaces it.
	Refresh bool

	// Reporter additionally receives every record as it is emitted. The
	// collected result is returned regardless.
	Reporter report.Reporter

	// TTL bounds the lifetime of the cached report stream.
	TTL time.Duration
}

// Stats summarizes one scan execution.
type Stats struct {
	Packages  int           `json:"packages"`
	Profiles  int           `json:"profiles"`
	Reports   int           `json:"reports"`
	LoadTime  time.Duration `json:"load_time"`
	CheckTime time.Duration `json:"check_time"`
}

// Result is the outcome of one scan.
type Result struct {
	// RunID uniquely identifies this execution.
	RunID string `json:"run_id"`

	// Records holds every finding in emission order.
	Records []report.Record `json:"-"`

	Stats Stats `json:"stats"`

	// CacheHit reports whether the records came from the scan cache
	// instead of a fresh run.
	CacheHit bool `json:"cache_hit"`
}

// Runner executes scans with report-stream caching.
//
// The Runner is stateless apart from the cache and logger; it stores no
// scan results itself.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects the default key layout, and a nil logger falls back to the
// package default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the checks enabled in cfg over the configured repository.
func (r *Runner) Execute(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	runID := uuid.NewString()
	result := &Result{RunID: runID}

	loadStart := time.Now()
	repository, snapHash, err := r.loadRepo(ctx, cfg.Repo, opts.TTL)
	if err != nil {
		return nil, err
	}
	profiles, err := profile.NewProvider(cfg.Profiles)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Packages = repository.Len()
	result.Stats.Profiles = len(profiles.Profiles())

	checks := cfg.EnabledChecks()
	scanKey := r.Keyer.ScanKey(snapHash, profilesHash(cfg.Profiles), checks)

	if !opts.Refresh {
		if records, ok := r.cachedRecords(ctx, scanKey); ok {
			r.Logger.Info("using cached scan results", "run_id", runID, "reports", len(records))
			result.Records = records
			result.Stats.Reports = len(records)
			result.CacheHit = true
			r.replay(records, opts.Reporter)
			return result, nil
		}
	}

	observability.Scan().OnScanStart(ctx, runID, repository.Len(), len(profiles.Profiles()))
	r.Logger.Info("starting scan",
		"run_id", runID,
		"packages", repository.Len(),
		"profiles", len(profiles.Profiles()),
		"checks", checks)

	collector := report.NewCollector()
	sink := r.sink(ctx, collector, opts.Reporter)

	checkStart := time.Now()
	err = r.runChecks(ctx, cfg, repository, profiles, sink)
	result.Stats.CheckTime = time.Since(checkStart)
	result.Records = collector.Records()
	result.Stats.Reports = len(result.Records)
	observability.Scan().OnScanComplete(ctx, runID, result.Stats.Reports, result.Stats.CheckTime, err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("scan complete",
		"run_id", runID,
		"reports", result.Stats.Reports,
		"duration", result.Stats.CheckTime)

	if data, err := report.EncodeRecords(result.Records); err == nil {
		if err := r.Cache.Set(ctx, scanKey, data, opts.TTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "scan", len(data))
		}
	}
	return result, nil
}

func (r *Runner) runChecks(ctx context.Context, cfg *config.Config, repository *repo.Repository, profiles *profile.Provider, sink report.Reporter) error {
	if cfg.VisibilityEnabled() {
		start := time.Now()
		counted := &countingReporter{ctx: ctx, next: sink}
		observability.Scan().OnCheckStart(ctx, config.CheckVisibility)

		evaluator := depset.NewEvaluator(profiles.Profiles())
		visibility := check.NewVisibility(check.NewContext(repository, profiles, evaluator))
		for _, pkg := range repository.Packages() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := visibility.Feed(pkg, counted); err != nil {
				return err
			}
		}
		observability.Scan().OnCheckComplete(ctx, config.CheckVisibility, counted.count, time.Since(start))
	}

	if cfg.Checks.Imlate {
		start := time.Now()
		counted := &countingReporter{ctx: ctx, next: sink}
		observability.Scan().OnCheckStart(ctx, config.CheckImlate)

		imlate := check.NewImlate(cfg.Imlate.Targets, cfg.Imlate.Sources)
		for _, key := range repository.Keys() {
			if err := ctx.Err(); err != nil {
				return err
			}
			imlate.Feed(repository.Versions(key), counted)
		}
		observability.Scan().OnCheckComplete(ctx, config.CheckImlate, counted.count, time.Since(start))
	}
	return nil
}

// loadRepo returns the parsed snapshot together with the content hash of
// its source files, the repository half of every scan cache key. The parsed
// form is cached under the snapshot key, so repeated runs against an
// unchanged snapshot skip the TOML decode.
func (r *Runner) loadRepo(ctx context.Context, path string, ttl time.Duration) (*repo.Repository, string, error) {
	hash, err := snapshotHash(path)
	if err != nil {
		return nil, "", err
	}
	key := r.Keyer.SnapshotKey(hash)

	repository, err := r.cachedSnapshot(ctx, key)
	if err == nil {
		observability.Cache().OnCacheHit(ctx, "snapshot")
		return repository, hash, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, "", err
	}
	observability.Cache().OnCacheMiss(ctx, "snapshot")

	repository, err = repo.Load(path)
	if err != nil {
		return nil, "", err
	}
	if data, err := json.Marshal(repository.Packages()); err == nil {
		if err := r.Cache.Set(ctx, key, data, ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, "snapshot", len(data))
		}
	}
	return repository, hash, nil
}

// cachedSnapshot rebuilds a repository from a cached parsed snapshot.
// Anything short of a decodable entry reports cache.ErrCacheMiss; stale or
// incompatible entries are dropped on the way out.
func (r *Runner) cachedSnapshot(ctx context.Context, key string) (*repo.Repository, error) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, cache.ErrCacheMiss
	}
	var pkgs []*ebuild.PackageVersion
	if err := json.Unmarshal(data, &pkgs); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return nil, cache.ErrCacheMiss
	}
	repository, err := repo.New(pkgs)
	if err != nil {
		_ = r.Cache.Delete(ctx, key)
		return nil, cache.ErrCacheMiss
	}
	return repository, nil
}

func (r *Runner) cachedRecords(ctx context.Context, key string) ([]report.Record, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "scan")
		return nil, false
	}
	records, err := report.DecodeRecords(data)
	if err != nil {
		// Incompatible entry from an older build; drop it and rescan.
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, "scan")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "scan")
	return records, true
}

func (r *Runner) replay(records []report.Record, rep report.Reporter) {
	if rep == nil {
		return
	}
	for _, rec := range records {
		rep.Report(rec)
	}
}

func (r *Runner) sink(ctx context.Context, collector *report.Collector, extra report.Reporter) report.Reporter {
	hooked := &hookReporter{ctx: ctx, next: collector}
	if extra == nil {
		return hooked
	}
	return report.Tee{hooked, extra}
}

// hookReporter forwards records to observability hooks on their way to the
// collector.
type hookReporter struct {
	ctx  context.Context
	next report.Reporter
}

func (h *hookReporter) Report(rec report.Record) {
	observability.Scan().OnReport(h.ctx, rec.Name(), rec.CPV())
	h.next.Report(rec)
}

// countingReporter counts records per check for the completion hook.
type countingReporter struct {
	ctx   context.Context
	next  report.Reporter
	count int
}

func (c *countingReporter) Report(rec report.Record) {
	c.count++
	c.next.Report(rec)
}

// snapshotHash hashes the snapshot source bytes: one file directly, a
// directory through the sorted concatenation of its *.toml files.
func snapshotHash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return cache.Hash(data), nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.toml"))
	if err != nil {
		return "", err
	}
	sort.Strings(files)
	var combined []byte
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		combined = append(combined, data...)
	}
	return cache.Hash(combined), nil
}

// profilesHash keys the profile half of the scan cache key.
func profilesHash(configs []profile.Config) string {
	data, _ := json.Marshal(configs)
	return cache.Hash(data)
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/observability"
	"github.com/parona-source/pkgcheck/pkg/report"
	"github.com/parona-source/pkgcheck/pkg/scan"
)

// Output formats for the scan command.
const (
	formatText = "text"
	formatJSON = "json"
)

// scanCommand creates the scan command, the main entry point.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		configPath string
		format     string
		output     string
		noCache    bool
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a repository snapshot for unsolvable dependencies",
		Long: `Scan a repository snapshot for unsolvable dependencies.

The scan runs every check enabled in the configuration over every package
version in the snapshot and prints one line per finding. Findings are
evidence, not failures: the command exits zero even when the repository has
problems. Use --format json for machine-readable output.

Finished scans are cached; an unchanged snapshot and profile set replays
instantly. Use --refresh to force a fresh run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runScan(cmd, cfg, format, output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pkgcheck.toml", "path to the scan configuration")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write findings to a file instead of stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the scan cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results and rescan")

	return cmd
}

func (c *CLI) runScan(cmd *cobra.Command, cfg *config.Config, format, output string, noCache, refresh bool) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown output format %q", format)
	}

	runner, err := c.newRunner(cmd, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Cache.Close()

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	var reporter report.Reporter
	if format == formatJSON {
		reporter = report.NewJSONReporter(out)
	} else {
		reporter = report.NewTextReporter(out)
	}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(cmd.Context(), "Scanning...")
	spinner.Start()
	observability.SetScanHooks(&spinnerProgress{spinner: spinner})
	defer observability.SetScanHooks(observability.NoopScanHooks{})
	prog := newProgress(c.Logger)

	result, err := runner.Execute(cmd.Context(), cfg, scan.Options{
		Refresh:  refresh,
		Reporter: reporter,
		TTL:      ttl,
	})
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Scan failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Scanned %d packages", result.Stats.Packages))

	if output != "" {
		printFile(output)
	}
	printScanStats(result)
	return nil
}

// spinnerProgress surfaces scan progress on the spinner message.
type spinnerProgress struct {
	observability.NoopScanHooks
	spinner *Spinner
}

func (p *spinnerProgress) OnScanStart(_ context.Context, _ string, pkgCount, profileCount int) {
	p.spinner.SetMessage(fmt.Sprintf("Scanning %d packages across %d profiles...", pkgCount, profileCount))
}

func (p *spinnerProgress) OnCheckStart(_ context.Context, check string) {
	p.spinner.SetMessage(fmt.Sprintf("Running %s check...", check))
}

// printScanStats prints a one-line scan summary.
func printScanStats(result *scan.Result) {
	if result.Stats.Reports == 0 {
		printSuccess("No findings across %d packages and %d profiles", result.Stats.Packages, result.Stats.Profiles)
	} else {
		printWarning("%d findings across %d packages and %d profiles", result.Stats.Reports, result.Stats.Packages, result.Stats.Profiles)
	}
	printStats(result.Stats.Packages, result.Stats.Reports, result.CacheHit)
}

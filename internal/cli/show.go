package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/observability"
	"github.com/parona-source/pkgcheck/pkg/scan"
)

// showCommand creates the show command: an interactive finding browser.
func (c *CLI) showCommand() *cobra.Command {
	var (
		configPath string
		noCache    bool
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Browse scan findings interactively",
		Long: `Browse scan findings interactively.

Runs a scan (replaying the cached stream when available) and opens a
terminal browser over the findings. Tab cycles through finding types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runShow(cmd, cfg, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pkgcheck.toml", "path to the scan configuration")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the scan cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results and rescan")

	return cmd
}

func (c *CLI) runShow(cmd *cobra.Command, cfg *config.Config, noCache, refresh bool) error {
	runner, err := c.newRunner(cmd, cfg, noCache)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	ttl, err := cfg.CacheTTL()
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(cmd.Context(), "Scanning...")
	spinner.Start()
	observability.SetScanHooks(&spinnerProgress{spinner: spinner})
	defer observability.SetScanHooks(observability.NoopScanHooks{})
	result, err := runner.Execute(cmd.Context(), cfg, scan.Options{Refresh: refresh, TTL: ttl})
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Scan failed")
		return err
	}
	spinner.Stop()

	if len(result.Records) == 0 {
		printSuccess("No findings across %d packages and %d profiles", result.Stats.Packages, result.Stats.Profiles)
		return nil
	}

	model := NewReportListModel(result.Records)
	_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
	return err
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/server"
)

// serveCommand creates the serve command exposing scan results over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scan results over HTTP",
		Long: `Serve scan results over HTTP.

Endpoints:
  GET /healthz      liveness probe
  GET /v1/reports   run a scan (or replay the cached stream) and return
                    every finding; add ?refresh=1 to force a fresh run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runServe(cmd, cfg, addr, noCache)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pkgcheck.toml", "path to the scan configuration")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the scan cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, cfg *config.Config, addr string, noCache bool) error {
	runner, err := c.newRunner(cmd, cfg, noCache)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(runner, cfg, c.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return cmd.Context().Err()
	}
}

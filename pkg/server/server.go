// Package server exposes scan results over HTTP for dashboards and CI
// integrations.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/scan"
)

// Server wires the scan runner behind an HTTP API. Scans run on demand and
// lean on the runner's report cache, so repeated requests against an
// unchanged snapshot are cheap.
type Server struct {
	runner *scan.Runner
	cfg    *config.Config
	logger *log.Logger
}

// New creates a server. A nil logger falls back to the package default.
func New(runner *scan.Runner, cfg *config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, cfg: cfg, logger: logger}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/reports", s.handleReports)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// reportsResponse is the envelope for GET /v1/reports.
type reportsResponse struct {
	RunID    string          `json:"run_id"`
	CacheHit bool            `json:"cache_hit"`
	Stats    scan.Stats      `json:"stats"`
	Reports  json.RawMessage `json:"reports"`
}

// handleReports runs a scan (or replays the cached stream) and returns
// every finding. "?refresh=1" forces a fresh run.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	opts := scan.Options{Refresh: r.URL.Query().Get("refresh") == "1"}
	if ttl, err := s.cfg.CacheTTL(); err == nil {
		opts.TTL = ttl
	}

	result, err := s.runner.Execute(r.Context(), s.cfg, opts)
	if err != nil {
		s.logger.Error("scan failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	encoded, err := encodeReports(result)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(encoded)
}

func encodeReports(result *scan.Result) (*reportsResponse, error) {
	data, err := reportJSON(result)
	if err != nil {
		return nil, err
	}
	return &reportsResponse{
		RunID:    result.RunID,
		CacheHit: result.CacheHit,
		Stats:    result.Stats,
		Reports:  data,
	}, nil
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

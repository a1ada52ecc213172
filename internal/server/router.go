// Package server exposes the document analysis service over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/services/cases"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Config holds the HTTP layer settings.
type Config struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// DefaultConfig matches the service defaults: 2 minute requests, 50 MB uploads.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 2 * time.Minute,
		MaxUploadBytes: int64(constants.MaxUploadMBDefault) << 20,
	}
}

// API holds the handlers.
type API struct {
	cases  *cases.Service
	dbPing HealthChecker
	cfg    Config
	logger *slog.Logger
}

// NewRouter wires every route under both "/" and "/api". dbPing may be nil when
// the audit log is disabled.
func NewRouter(svc *cases.Service, dbPing HealthChecker, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	api := &API{cases: svc, dbPing: dbPing, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	api.routes(r)
	r.Route("/api", api.routes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (a *API) routes(r chi.Router) {
	r.Get("/health", a.Health)
	r.Post("/analyze", a.AnalyzeFile)
	r.Post("/similarity", a.Similarity)

	r.Route("/cases", func(r chi.Router) {
		r.Post("/analyze", a.AnalyzeText)
		r.Get("/latest-analysis", a.LatestAnalysis)
		r.Get("/history", a.History)
		r.Get("/history/export", a.ExportHistory)
	})

	r.Route("/chat", func(r chi.Router) {
		r.Post("/ask", a.Ask)
	})
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"employcli/internal/config"
	"employcli/internal/infrastructure"
	"employcli/internal/middleware"
)

// RouterDeps are the collaborators wired into the HTTP router
type RouterDeps struct {
	Config    config.ServerConfig
	Runner    PipelineRunner
	Store     Pinger
	TopN      int
	Telemetry *infrastructure.Telemetry
	Logger    *slog.Logger
}

// NewRouter builds the service router:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/v1/growth
//	GET  /api/v1/composition
//	GET  /api/v1/trend?sector=
//	GET  /api/v1/insights?top=
//	POST /api/v1/refresh
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := deps.Telemetry
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Telemetry(tel))
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	health := NewHealthHandler(deps.Store, 2*time.Second, logger)
	r.Get("/healthz", health.HealthCheck)

	if tel.MetricsHandler != nil {
		r.Handle("/metrics", tel.MetricsHandler)
	}

	reports := NewReportHandler(deps.Runner, deps.TopN, logger)
	r.Route("/api/v1", func(r chi.Router) {
		if rl := deps.Config.RateLimit; rl.Enabled {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, logger).Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/", reports.Routes())
	})

	return r
}

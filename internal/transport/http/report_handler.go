package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	apierrors "employcli/internal/errors"
	"employcli/internal/exporter"
	"employcli/internal/services"
	"employcli/pkg/contracts/domain"
)

// PipelineRunner runs the analysis pipeline once
type PipelineRunner interface {
	Run(ctx context.Context) (*services.Result, error)
}

// GrowthResponse is the body of GET /growth
type GrowthResponse struct {
	RunID  string             `json:"run_id"`
	Window domain.YearWindow  `json:"window"`
	Rows   []domain.GrowthRow `json:"rows"`
}

// CompositionResponse is the body of GET /composition
type CompositionResponse struct {
	RunID string                  `json:"run_id"`
	Rows  []domain.CompositionRow `json:"rows"`
}

// TrendResponse is the body of GET /trend
type TrendResponse struct {
	RunID  string                    `json:"run_id"`
	Sector string                    `json:"sector,omitempty"`
	Points []domain.SectorTrendPoint `json:"points"`
}

// RunSummary is the body of POST /refresh
type RunSummary struct {
	RunID     string              `json:"run_id"`
	StartedAt string              `json:"started_at"`
	Duration  string              `json:"duration"`
	Window    domain.YearWindow   `json:"window"`
	Clean     services.CleanStats `json:"clean"`
}

type insightsQuery struct {
	Top int `validate:"min=1,max=50"`
}

// ReportHandler serves pipeline results. The first request runs the
// pipeline; later requests reuse the cached result until a refresh.
// Concurrent runs are coalesced into one.
type ReportHandler struct {
	runner   PipelineRunner
	topN     int
	logger   *slog.Logger
	validate *validator.Validate

	group  singleflight.Group
	mu     sync.RWMutex
	latest *services.Result
}

// NewReportHandler creates a report handler. topN is the default for /insights.
func NewReportHandler(runner PipelineRunner, topN int, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		runner:   runner,
		topN:     topN,
		logger:   logger.With(slog.String("handler", "report")),
		validate: validator.New(),
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/growth", h.GetGrowth)
	r.Get("/composition", h.GetComposition)
	r.Get("/trend", h.GetTrend)
	r.Get("/insights", h.GetInsights)
	r.Post("/refresh", h.Refresh)
	return r
}

// GetGrowth handles GET /growth
func (h *ReportHandler) GetGrowth(w http.ResponseWriter, r *http.Request) {
	result, err := h.result(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, GrowthResponse{RunID: result.RunID, Window: result.Window, Rows: result.Growth})
}

// GetComposition handles GET /composition
func (h *ReportHandler) GetComposition(w http.ResponseWriter, r *http.Request) {
	result, err := h.result(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, CompositionResponse{RunID: result.RunID, Rows: result.Composition})
}

// GetTrend handles GET /trend?sector=. Without a sector every point is returned.
func (h *ReportHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	result, err := h.result(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	sector := strings.TrimSpace(r.URL.Query().Get("sector"))
	if sector == "" {
		render.JSON(w, r, TrendResponse{RunID: result.RunID, Points: result.Trend})
		return
	}

	points := make([]domain.SectorTrendPoint, 0)
	for _, p := range result.Trend {
		if strings.EqualFold(p.Sector, sector) {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		h.renderError(w, r, apierrors.NotFoundError("sector "+sector))
		return
	}
	render.JSON(w, r, TrendResponse{RunID: result.RunID, Sector: points[0].Sector, Points: points})
}

// GetInsights handles GET /insights?top=
func (h *ReportHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	q := insightsQuery{Top: h.topN}
	if raw := r.URL.Query().Get("top"); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil {
			h.renderError(w, r, apierrors.ErrValidation("top", "must be an integer"))
			return
		}
		q.Top = top
	}
	if err := h.validate.Struct(q); err != nil {
		h.renderError(w, r, apierrors.ErrValidation("top", "must be between 1 and 50"))
		return
	}

	result, err := h.result(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	insights, err := exporter.BuildInsights(result, q.Top)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, insights)
}

// Refresh handles POST /refresh by running the pipeline again
func (h *ReportHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.run(r.Context(), false)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, RunSummary{
		RunID:     result.RunID,
		StartedAt: result.StartedAt.UTC().Format(time.RFC3339),
		Duration:  result.Duration.String(),
		Window:    result.Window,
		Clean:     result.Clean,
	})
}

// result returns the cached result, running the pipeline on first use
func (h *ReportHandler) result(ctx context.Context) (*services.Result, error) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}
	return h.run(ctx, true)
}

// run executes the pipeline once for all concurrent callers and caches a
// successful result. A failed run keeps the previous result. With
// reuseCached a result cached by a run that finished in the meantime is
// returned instead of starting another.
func (h *ReportHandler) run(ctx context.Context, reuseCached bool) (*services.Result, error) {
	// The shared run must outlive the request that happened to start it.
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := h.group.Do("pipeline", func() (interface{}, error) {
		if reuseCached {
			h.mu.RLock()
			latest := h.latest
			h.mu.RUnlock()
			if latest != nil {
				return latest, nil
			}
		}
		result, err := h.runner.Run(runCtx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.latest = result
		h.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		h.logger.DebugContext(ctx, "Joined in-flight pipeline run")
	}
	return v.(*services.Result), nil
}

func (h *ReportHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

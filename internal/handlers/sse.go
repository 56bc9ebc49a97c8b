package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"bi-dashboard/internal/errors"
	"bi-dashboard/internal/observability"
	"bi-dashboard/internal/services"
	"bi-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics      *services.Analytics
	forecaster     *services.Forecaster
	defaultHorizon int
	logger         *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, forecaster *services.Forecaster, defaultHorizon int, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics:      analytics,
		forecaster:     forecaster,
		defaultHorizon: defaultHorizon,
		logger:         logger,
	}
}

// stream wraps a datastar SSE writer with the request's logger. Each patch
// logs and swallows its own failure so one broken panel does not blank the rest.
type stream struct {
	ctx    context.Context
	sse    *datastar.ServerSentEventGenerator
	logger *slog.Logger
}

func (h *SSEHandlers) open(w http.ResponseWriter, r *http.Request) *stream {
	return &stream{
		ctx:    r.Context(),
		sse:    datastar.NewSSE(w, r),
		logger: observability.LoggerFrom(r.Context(), h.logger),
	}
}

func (s *stream) patch(name string, c templ.Component) {
	html, err := templates.Render(s.ctx, c)
	if err != nil {
		s.logger.Error("render fragment", "fragment", name, "error", err)
		return
	}
	if err := s.sse.PatchElements(html); err != nil {
		s.logger.Warn("patch elements", "fragment", name, "error", err)
	}
}

func (s *stream) signals(values map[string]any) {
	data, err := json.Marshal(values)
	if err != nil {
		s.logger.Error("marshal signals", "error", err)
		return
	}
	if err := s.sse.PatchSignals(data); err != nil {
		s.logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) requestFilter(w http.ResponseWriter, r *http.Request) (services.Filter, bool) {
	f, err := parseFilter(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return f, false
	}
	return f, true
}

func (h *SSEHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	f, ok := h.requestFilter(w, r)
	if !ok {
		return
	}
	h.open(w, r).patch("kpis", templates.KPICards(h.analytics.KPIs(f)))
}

func (h *SSEHandlers) HandleRevenueByCategory(w http.ResponseWriter, r *http.Request) {
	f, ok := h.requestFilter(w, r)
	if !ok {
		return
	}
	h.open(w, r).patch("category", templates.CategoryTable(h.analytics.RevenueByCategory(f)))
}

func (h *SSEHandlers) HandleRevenueByCountry(w http.ResponseWriter, r *http.Request) {
	f, ok := h.requestFilter(w, r)
	if !ok {
		return
	}
	h.open(w, r).patch("country", templates.CountryTable(h.analytics.RevenueByCountry(f)))
}

func (h *SSEHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	f, ok := h.requestFilter(w, r)
	if !ok {
		return
	}
	summary := h.analytics.Summary(f)

	s := h.open(w, r)
	s.signals(map[string]any{"monthlyData": summary.MonthlySales})
	s.patch("pivot", templates.PivotTable(summary.MonthlyPivot, summary.Years))
}

// requestHorizon parses and range-checks the horizon. Failures are written as a
// JSON error, so callers must not have opened the stream yet.
func (h *SSEHandlers) requestHorizon(w http.ResponseWriter, r *http.Request) (int, bool) {
	horizon, err := parseHorizon(r, h.defaultHorizon)
	if err == nil {
		if rangeErr := h.forecaster.ValidateHorizon(horizon); rangeErr != nil {
			err = errors.FromForecast(rangeErr)
		}
	}
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return 0, false
	}
	return horizon, true
}

func (h *SSEHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.requestHorizon(w, r)
	if !ok {
		return
	}
	h.sendForecast(h.open(w, r), horizon)
}

func (h *SSEHandlers) sendForecast(s *stream, horizon int) {
	outcome, err := h.forecaster.Outcome(s.ctx, horizon)
	if err != nil {
		// The stream is already open; report the failure inside the panel.
		appErr := errors.FromForecast(err)
		s.logger.Warn("forecast failed", "error", err, "horizon", horizon)
		outcome = services.ForecastOutcome{Horizon: horizon, Message: appErr.Message}
	}
	s.signals(map[string]any{"forecastData": outcome})
	s.patch("forecast", templates.ForecastPanel(outcome))
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	f, ok := h.requestFilter(w, r)
	if !ok {
		return
	}
	horizon, ok := h.requestHorizon(w, r)
	if !ok {
		return
	}

	summary := h.analytics.Summary(f)
	top := summary.SubCategoryProfit
	if len(top) > defaultSubCategoryLimit {
		top = top[:defaultSubCategoryLimit]
	}

	s := h.open(w, r)
	s.patch("kpis", templates.KPICards(summary.KPIs))
	s.patch("category", templates.CategoryTable(summary.RevenueByCategory))
	s.patch("country", templates.CountryTable(summary.RevenueByCountry))
	s.patch("subcategory", templates.SubCategoryTable(top))
	s.patch("pivot", templates.PivotTable(summary.MonthlyPivot, summary.Years))
	s.signals(map[string]any{"monthlyData": summary.MonthlySales})
	h.sendForecast(s, horizon)
}

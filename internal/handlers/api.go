package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"bi-dashboard/internal/errors"
	"bi-dashboard/internal/observability"
	"bi-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics      *services.Analytics
	forecaster     *services.Forecaster
	defaultHorizon int
	logger         *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, forecaster *services.Forecaster, defaultHorizon int, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics:      analytics,
		forecaster:     forecaster,
		defaultHorizon: defaultHorizon,
		logger:         logger,
	}
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := observability.GetRequestID(r.Context())
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, requestID)
}

func (h *APIHandlers) writeCached(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

// filtered runs fn with the request's filter, answering 400 on a bad filter.
func (h *APIHandlers) filtered(fn func(services.Filter) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilter(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeCached(w, fn(f))
	}
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	h.filtered(func(f services.Filter) any { return h.analytics.KPIs(f) })(w, r)
}

func (h *APIHandlers) HandleRevenueByCategory(w http.ResponseWriter, r *http.Request) {
	h.filtered(func(f services.Filter) any { return h.analytics.RevenueByCategory(f) })(w, r)
}

func (h *APIHandlers) HandleRevenueByCountry(w http.ResponseWriter, r *http.Request) {
	h.filtered(func(f services.Filter) any { return h.analytics.RevenueByCountry(f) })(w, r)
}

func (h *APIHandlers) HandleMonthlyPivot(w http.ResponseWriter, r *http.Request) {
	h.filtered(func(f services.Filter) any { return h.analytics.MonthlyPivot(f) })(w, r)
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	h.filtered(func(f services.Filter) any { return h.analytics.MonthlySales(f) })(w, r)
}

func (h *APIHandlers) HandleTopSubCategories(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.filtered(func(f services.Filter) any { return h.analytics.TopProfitableSubCategories(f, limit) })(w, r)
}

func (h *APIHandlers) HandleFacets(w http.ResponseWriter, r *http.Request) {
	h.writeCached(w, h.analytics.Facets())
}

// HandleForecast always forecasts the full dataset. An unavailable forecast is
// a successful response with available=false.
func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	horizon, err := parseHorizon(r, h.defaultHorizon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.forecaster.Outcome(r.Context(), horizon)
	if err != nil {
		h.writeError(w, r, errors.FromForecast(err))
		return
	}

	errors.WriteSuccessWithHeaders(w, outcome, map[string]string{
		"Cache-Control": "no-cache",
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.analytics.Version() == 0 {
		status = "degraded"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

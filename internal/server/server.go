package server

import (
	"log/slog"
	"net/http"

	"bi-dashboard/internal/handlers"
	"bi-dashboard/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Deps groups what the routes read from. DefaultHorizon is used when a forecast
// request does not name one.
type Deps struct {
	Analytics      *services.Analytics
	Forecaster     *services.Forecaster
	DefaultHorizon int
}

func NewServer(deps Deps, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(deps.Analytics, deps.Forecaster, deps.DefaultHorizon, logger),
		sseHandlers: handlers.NewSSEHandlers(deps.Analytics, deps.Forecaster, deps.DefaultHorizon, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/facets", s.apiHandlers.HandleFacets)
	s.mux.HandleFunc("GET /api/revenue-by-category", s.apiHandlers.HandleRevenueByCategory)
	s.mux.HandleFunc("GET /api/revenue-by-country", s.apiHandlers.HandleRevenueByCountry)
	s.mux.HandleFunc("GET /api/top-subcategories", s.apiHandlers.HandleTopSubCategories)
	s.mux.HandleFunc("GET /api/monthly-pivot", s.apiHandlers.HandleMonthlyPivot)
	s.mux.HandleFunc("GET /api/monthly-sales", s.apiHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /api/forecast", s.apiHandlers.HandleForecast)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/kpis", s.sseHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /sse/revenue-by-category", s.sseHandlers.HandleRevenueByCategory)
	s.mux.HandleFunc("GET /sse/revenue-by-country", s.sseHandlers.HandleRevenueByCountry)
	s.mux.HandleFunc("GET /sse/monthly-sales", s.sseHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /sse/forecast", s.sseHandlers.HandleForecast)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

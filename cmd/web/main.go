package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"bi-dashboard/internal/config"
	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/middleware"
	"bi-dashboard/internal/observability"
	"bi-dashboard/internal/server"
	"bi-dashboard/internal/services"
	"bi-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

// dashboardHandler renders the page shell. Data arrives afterwards over SSE.
func dashboardHandler(analytics *services.Analytics, fc config.ForecastConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		facets := analytics.Facets()
		view := templates.DashboardView{
			Years:          facets.Years,
			Countries:      facets.Countries,
			Categories:     facets.Categories,
			DefaultHorizon: fc.Horizon,
			MaxHorizon:     fc.MaxHorizon,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(view).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// buildHandler wires services, routes and the middleware chain.
func buildHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) (http.Handler, error) {
	model, err := cfg.Forecast.Model()
	if err != nil {
		return nil, err
	}
	engine, err := forecast.NewEngine(model, logger)
	if err != nil {
		return nil, err
	}
	forecaster := services.NewForecaster(engine, analytics, cfg.Forecast.MaxHorizon, logger)

	srv := server.NewServer(server.Deps{
		Analytics:      analytics,
		Forecaster:     forecaster,
		DefaultHorizon: cfg.Forecast.Horizon,
	}, logger, &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, cfg.Forecast),
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(logger),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)
	return chain(srv), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Database.CSVFile,
		"forecast_horizon", cfg.Forecast.Horizon,
		"seasonal_period", cfg.Forecast.SeasonalPeriod,
	)

	analytics := services.NewAnalyticsWithLogger(logger)
	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	start := time.Now()
	err = analytics.LoadFromCSV(ctx, cfg.Database.CSVFile)
	cancel()
	if err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))

	handler, err := buildHandler(cfg, analytics, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server.ShutdownTimeout)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

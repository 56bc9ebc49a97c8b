package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bi-dashboard/internal/config"
	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/observability"
	"bi-dashboard/internal/report"
	"bi-dashboard/internal/services"
)

// options holds the raw flag values before validation.
type options struct {
	csvFile   string
	horizon   int
	output    string
	period    int
	trend     string
	seasonal  string
	history   bool
	precision int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		// Flags still work without a valid environment; fall back to built-in defaults.
		cfg = &config.Config{
			Database: config.DatabaseConfig{CSVFile: "sales_data.csv"},
			Logger:   config.LoggerConfig{Level: "info", Format: "text", Service: "forecast"},
			Forecast: config.ForecastConfig{
				Horizon:        6,
				SeasonalPeriod: forecast.DefaultSeasonalPeriod,
				Trend:          string(forecast.Additive),
				Seasonal:       string(forecast.Additive),
			},
		}
	}

	opts := &options{}
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast monthly revenue from a sales CSV",
		Long: `Aggregate a sales CSV into monthly revenue and project it forward with
additive Holt-Winters exponential smoothing.

Examples:
  # Six months ahead as a table
  forecast --csv sales_data.csv

  # A year ahead as JSON, including the monthly history
  forecast --csv sales_data.csv --horizon 12 --output json --history

  # Quarterly seasonality without a trend component
  forecast --csv sales.csv --period 4 --trend none`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Logger.Service = "forecast"
			logger := observability.NewLoggerTo(stderr, cfg.Logger)
			return run(cmd.Context(), opts, logger, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.csvFile, "csv", cfg.Database.CSVFile, "path to the sales CSV file")
	flags.IntVar(&opts.horizon, "horizon", cfg.Forecast.Horizon, "number of months to forecast")
	flags.StringVarP(&opts.output, "output", "o", string(report.TableOut), "output format: table, json or csv")
	flags.IntVar(&opts.period, "period", cfg.Forecast.SeasonalPeriod, "seasonal period in months")
	flags.StringVar(&opts.trend, "trend", cfg.Forecast.Trend, "trend component: additive or none")
	flags.StringVar(&opts.seasonal, "seasonal", cfg.Forecast.Seasonal, "seasonal component: additive or none")
	flags.BoolVar(&opts.history, "history", false, "include the monthly history in the output")
	flags.IntVar(&opts.precision, "precision", 2, "decimal places for revenue values")

	return cmd
}

func run(ctx context.Context, opts *options, logger *slog.Logger, stdout io.Writer) error {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	if err := forecast.CheckHorizon(opts.horizon, 0); err != nil {
		return err
	}
	if opts.precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", opts.precision)
	}

	model, err := config.ForecastConfig{
		SeasonalPeriod: opts.period,
		Trend:          opts.trend,
		Seasonal:       opts.seasonal,
	}.Model()
	if err != nil {
		return err
	}

	engine, err := forecast.NewEngine(model, logger)
	if err != nil {
		return err
	}

	analytics := services.NewAnalyticsWithLogger(logger)
	if err := analytics.LoadFromCSV(ctx, opts.csvFile); err != nil {
		return fmt.Errorf("load %s: %w", opts.csvFile, err)
	}
	txs, _ := analytics.Transactions()

	reportOpts := report.Options{Format: format, IncludeHistory: opts.history, Precision: opts.precision}
	result, err := engine.Produce(txs, opts.horizon)
	if err != nil {
		if ue, ok := forecast.AsUnavailable(err); ok {
			return report.WriteUnavailable(stdout, ue, reportOpts)
		}
		return err
	}

	logger.Info("forecast complete", "months", len(result.History), "horizon", opts.horizon)
	return report.WriteForecast(stdout, result, reportOpts)
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, forecast.ErrInvalidHorizon) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

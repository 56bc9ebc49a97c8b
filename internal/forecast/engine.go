// Package forecast projects monthly revenue with additive Holt-Winters
// exponential smoothing.
package forecast

import (
	"fmt"
	"log/slog"
	"math"

	"bi-dashboard/internal/models"
)

type Result struct {
	History  []models.MonthlyRevenue `json:"history"`
	Forecast []models.ForecastPoint  `json:"forecast"`
	Params   Params                  `json:"params"`
	SSE      float64                 `json:"sse"`
}

// Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Produce resamples txs into a monthly series, fits the model and predicts horizon
// months past the last historical month.
//
// A non-positive horizon returns ErrInvalidHorizon and an empty table returns
// ErrEmptyInput. When the model cannot be fitted the result is nil and the error
// is an *UnavailableError.
func (e *Engine) Produce(txs []models.Transaction, horizon int) (*Result, error) {
	if err := CheckHorizon(horizon, 0); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrEmptyInput
	}

	history := MonthlySeries(txs)
	model, err := e.fit(history)
	if err != nil {
		e.logger.Warn("forecast unavailable",
			"error", err,
			"months", len(history),
			"min_months", e.cfg.MinHistory(),
		)
		return nil, err
	}

	values := model.predict(horizon)
	points := make([]models.ForecastPoint, horizon)
	month := history[len(history)-1].Month
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err := unavailable(ReasonNumerical, fmt.Errorf("prediction %d: %w", i+1, errNonFinite))
			e.logger.Warn("forecast unavailable", "error", err)
			return nil, err
		}
		month = NextMonthEnd(month)
		points[i] = models.ForecastPoint{Month: month, Forecast: v}
	}

	e.logger.Debug("forecast produced",
		"months", len(history),
		"horizon", horizon,
		"alpha", model.params.Alpha,
		"beta", model.params.Beta,
		"gamma", model.params.Gamma,
		"sse", model.sse,
	)

	return &Result{
		History:  history,
		Forecast: points,
		Params:   model.params,
		SSE:      model.sse,
	}, nil
}

func (e *Engine) fit(history []models.MonthlyRevenue) (model *holtWinters, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = unavailable(ReasonNumerical, fmt.Errorf("fit panicked: %v", r))
		}
	}()

	if need := e.cfg.MinHistory(); len(history) < need {
		return nil, unavailable(ReasonInsufficientHistory,
			fmt.Errorf("have %d months, need at least %d", len(history), need))
	}

	y := make([]float64, len(history))
	for i, h := range history {
		y[i] = h.Revenue
	}
	return fitHoltWinters(y, e.cfg)
}

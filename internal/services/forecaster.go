package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/models"
	"bi-dashboard/internal/observability"
)

// TransactionSource supplies the table to forecast from together with a version
// that changes whenever the table does. Version must be cheap; Transactions is
// only called when no cached forecast exists for the current version.
type TransactionSource interface {
	Version() uint64
	Transactions() ([]models.Transaction, uint64)
}

// ForecastOutcome is the display form of a forecast request. Unavailable
// forecasts carry a reason instead of data.
type ForecastOutcome struct {
	Available bool                    `json:"available"`
	Horizon   int                     `json:"horizon"`
	Reason    forecast.Reason         `json:"reason,omitempty"`
	Message   string                  `json:"message,omitempty"`
	History   []models.MonthlyRevenue `json:"history,omitempty"`
	Forecast  []models.ForecastPoint  `json:"forecast,omitempty"`
	Params    *forecast.Params        `json:"params,omitempty"`
}

type cachedForecast struct {
	result *forecast.Result
	err    error
}

// Forecaster memoises engine runs per dataset version and horizon. Concurrent
// requests for the same key share a single fit.
type Forecaster struct {
	engine     *forecast.Engine
	source     TransactionSource
	maxHorizon int
	logger     *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	version uint64
	cache   map[int]cachedForecast
}

func NewForecaster(engine *forecast.Engine, source TransactionSource, maxHorizon int, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		engine:     engine,
		source:     source,
		maxHorizon: maxHorizon,
		logger:     logger,
		cache:      make(map[int]cachedForecast),
	}
}

func (f *Forecaster) MaxHorizon() int {
	return f.maxHorizon
}

// ValidateHorizon returns a *forecast.HorizonError unless 1 <= horizon <= the
// configured maximum.
func (f *Forecaster) ValidateHorizon(horizon int) error {
	return forecast.CheckHorizon(horizon, f.maxHorizon)
}

// Forecast returns the engine result for horizon. Errors follow the engine's
// contract; horizons above the configured maximum are rejected with
// forecast.ErrInvalidHorizon.
func (f *Forecaster) Forecast(ctx context.Context, horizon int) (*forecast.Result, error) {
	if err := f.ValidateHorizon(horizon); err != nil {
		return nil, err
	}

	version := f.source.Version()
	if cached, ok := f.lookup(version, horizon); ok {
		return cached.result, cached.err
	}

	ctx, span := observability.StartSpan(ctx, "forecast.produce")
	span.SetTag("horizon", strconv.Itoa(horizon))
	span.SetTag("dataset_version", strconv.FormatUint(version, 10))
	defer span.End(ctx, f.logger)

	key := strconv.FormatUint(version, 10) + ":" + strconv.Itoa(horizon)
	ch := f.group.DoChan(key, func() (any, error) {
		// The table may have moved on since the lookup; cache under the version
		// the rows actually belong to.
		txs, current := f.source.Transactions()
		result, err := f.engine.Produce(txs, horizon)
		f.store(current, horizon, cachedForecast{result: result, err: err})
		return result, err
	})

	select {
	case <-ctx.Done():
		span.SetError(ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		span.SetTag("shared", strconv.FormatBool(res.Shared))
		if res.Err != nil {
			span.SetError(res.Err)
			return nil, res.Err
		}
		return res.Val.(*forecast.Result), nil
	}
}

// Outcome is Forecast with unavailability folded into the returned value. Only
// precondition failures and cancellation are returned as errors.
func (f *Forecaster) Outcome(ctx context.Context, horizon int) (ForecastOutcome, error) {
	result, err := f.Forecast(ctx, horizon)
	if err != nil {
		if ue, ok := forecast.AsUnavailable(err); ok {
			return ForecastOutcome{
				Horizon: horizon,
				Reason:  ue.Reason,
				Message: ue.Message(),
			}, nil
		}
		return ForecastOutcome{}, err
	}

	params := result.Params
	return ForecastOutcome{
		Available: true,
		Horizon:   horizon,
		History:   result.History,
		Forecast:  result.Forecast,
		Params:    &params,
	}, nil
}

func (f *Forecaster) lookup(version uint64, horizon int) (cachedForecast, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.version != version {
		return cachedForecast{}, false
	}
	c, ok := f.cache[horizon]
	return c, ok
}

func (f *Forecaster) store(version uint64, horizon int, c cachedForecast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case version > f.version:
		f.version = version
		f.cache = make(map[int]cachedForecast)
	case version < f.version:
		return
	}
	f.cache[horizon] = c
}

package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/models"
)

type stubSource struct {
	mu      sync.Mutex
	txs     []models.Transaction
	version uint64
	calls   atomic.Int32
}

func (s *stubSource) Transactions() ([]models.Transaction, uint64) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs, s.version
}

func (s *stubSource) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *stubSource) replace(txs []models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = txs
	s.version++
}

func seasonalSales(months int) []models.Transaction {
	start := time.Date(2019, time.January, 10, 0, 0, 0, 0, time.UTC)
	txs := make([]models.Transaction, 0, months)
	for i := range months {
		revenue := 1000.0 + 10*float64(i)
		if i%12 == 11 {
			revenue += 400
		}
		txs = append(txs, models.Transaction{Date: start.AddDate(0, i, 0), Revenue: revenue})
	}
	return txs
}

func newTestForecaster(t *testing.T, src TransactionSource) *Forecaster {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := forecast.NewEngine(forecast.DefaultConfig(), logger)
	require.NoError(t, err)
	return NewForecaster(engine, src, 24, logger)
}

func TestForecaster_CachesPerVersion(t *testing.T) {
	src := &stubSource{txs: seasonalSales(36), version: 1}
	f := newTestForecaster(t, src)

	first, err := f.Forecast(context.Background(), 6)
	require.NoError(t, err)
	second, err := f.Forecast(context.Background(), 6)
	require.NoError(t, err)
	assert.Same(t, first, second)

	src.replace(seasonalSales(48))
	third, err := f.Forecast(context.Background(), 6)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Len(t, third.History, 48)
}

func TestForecaster_CacheHitSkipsTableCopy(t *testing.T) {
	src := &stubSource{txs: seasonalSales(36), version: 1}
	f := newTestForecaster(t, src)

	for range 5 {
		_, err := f.Forecast(context.Background(), 6)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	_, err := f.Forecast(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	src.replace(seasonalSales(40))
	_, err = f.Forecast(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestForecaster_RejectedHorizonSkipsSource(t *testing.T) {
	src := &stubSource{txs: seasonalSales(36), version: 1}
	f := newTestForecaster(t, src)

	err := f.ValidateHorizon(99)
	var he *forecast.HorizonError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 24, he.Max)

	_, err = f.Forecast(context.Background(), 99)
	assert.ErrorIs(t, err, forecast.ErrInvalidHorizon)
	assert.Zero(t, src.calls.Load())
	assert.NoError(t, f.ValidateHorizon(24))
}

func TestForecaster_HorizonBounds(t *testing.T) {
	f := newTestForecaster(t, &stubSource{txs: seasonalSales(36), version: 1})

	for _, h := range []int{-1, 0, 25} {
		_, err := f.Forecast(context.Background(), h)
		assert.ErrorIs(t, err, forecast.ErrInvalidHorizon, "horizon %d", h)
	}

	result, err := f.Forecast(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, result.Forecast, 24)
}

func TestForecaster_EmptySource(t *testing.T) {
	f := newTestForecaster(t, &stubSource{})

	_, err := f.Forecast(context.Background(), 6)
	assert.ErrorIs(t, err, forecast.ErrEmptyInput)

	_, err = f.Outcome(context.Background(), 6)
	assert.ErrorIs(t, err, forecast.ErrEmptyInput)
}

func TestForecaster_OutcomeUnavailable(t *testing.T) {
	f := newTestForecaster(t, &stubSource{txs: seasonalSales(14), version: 1})

	outcome, err := f.Outcome(context.Background(), 6)
	require.NoError(t, err)
	assert.False(t, outcome.Available)
	assert.Equal(t, forecast.ReasonInsufficientHistory, outcome.Reason)
	assert.NotEmpty(t, outcome.Message)
	assert.Empty(t, outcome.Forecast)
	assert.Equal(t, 6, outcome.Horizon)
}

func TestForecaster_OutcomeAvailable(t *testing.T) {
	f := newTestForecaster(t, &stubSource{txs: seasonalSales(36), version: 1})

	outcome, err := f.Outcome(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, outcome.Available)
	assert.Len(t, outcome.History, 36)
	assert.Len(t, outcome.Forecast, 3)
	require.NotNil(t, outcome.Params)
	assert.Empty(t, outcome.Reason)

	last := outcome.History[len(outcome.History)-1].Month
	assert.Equal(t, forecast.NextMonthEnd(last), outcome.Forecast[0].Month)
}

func TestForecaster_ConcurrentRequests(t *testing.T) {
	src := &stubSource{txs: seasonalSales(36), version: 1}
	f := newTestForecaster(t, src)

	var wg sync.WaitGroup
	results := make([]*forecast.Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.Forecast(context.Background(), 6)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results[1:] {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Forecast, r.Forecast)
	}
}

func TestForecaster_WithAnalyticsSource(t *testing.T) {
	a := NewAnalytics()
	f := newTestForecaster(t, a)

	_, err := f.Forecast(context.Background(), 6)
	assert.ErrorIs(t, err, forecast.ErrEmptyInput)

	a.SetData(seasonalSales(30))
	result, err := f.Forecast(context.Background(), 6)
	require.NoError(t, err)
	assert.Len(t, result.History, 30)
}

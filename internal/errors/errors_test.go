package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bi-dashboard/internal/forecast"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{Internal("x"), http.StatusInternalServerError},
		{New(CodeValidation, "x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{New(CodeNotFound, "x"), http.StatusNotFound},
		{RateLimit("x"), http.StatusTooManyRequests},
		{New(CodeServiceUnavail, "x"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.StatusCode, string(tt.err.Code))
	}
}

func TestWrap_Unwraps(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeInternal, "save failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFromForecast(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"invalid horizon", fmt.Errorf("%w: got 0", forecast.ErrInvalidHorizon), CodeValidation, http.StatusBadRequest},
		{"empty input", forecast.ErrEmptyInput, CodeServiceUnavail, http.StatusServiceUnavailable},
		{"other", stderrors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromForecast(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}

	assert.Equal(t, "forecast: invalid horizon: got 0",
		FromForecast(fmt.Errorf("%w: got 0", forecast.ErrInvalidHorizon)).Details)
}

func TestFromForecast_HorizonRange(t *testing.T) {
	appErr := FromForecast(forecast.CheckHorizon(99, 60))
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, "Forecast horizon must be between 1 and 60 months", appErr.Message)
	assert.Equal(t, "forecast: invalid horizon: got 99, allowed 1..60", appErr.Details)

	appErr = FromForecast(forecast.CheckHorizon(0, 0))
	assert.Equal(t, "Forecast horizon must be a positive number of months", appErr.Message)
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, BadRequest("year must be a positive integer"), "req-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeBadRequest, body.Error.Code)
	assert.Equal(t, "req-1", body.Error.RequestID)
}

func TestWriteError_PlainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, fmt.Errorf("wrapped: %w", stderrors.New("boom")), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom", "causes are not exposed to clients")
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, []int{1, 2}, map[string]string{"Cache-Control": "no-cache"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":[1,2],"success":true}`, w.Body.String())
}

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func monthEnd(y int, m time.Month) time.Time {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func sampleResult() *forecast.Result {
	return &forecast.Result{
		History: []models.MonthlyRevenue{
			{Month: monthEnd(2016, time.May), Revenue: 1000},
			{Month: monthEnd(2016, time.June), Revenue: 1100.5},
		},
		Forecast: []models.ForecastPoint{
			{Month: monthEnd(2016, time.July), Forecast: 1200.25},
			{Month: monthEnd(2016, time.August), Forecast: -3.5},
		},
		Params: forecast.Params{Alpha: 0.5, Beta: 0.1, Gamma: 0.2},
		SSE:    42,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": TableOut, "table": TableOut, "JSON": JSONOut, " csv ": CSVOut} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestWriteForecast_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, sampleResult(), Options{Format: CSVOut, IncludeHistory: true, Precision: 2}))

	want := strings.Join([]string{
		"month,kind,revenue",
		"2016-05-31,history,1000.00",
		"2016-06-30,history,1100.50",
		"2016-07-31,forecast,1200.25",
		"2016-08-31,forecast,-3.50",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteForecast_CSVWithoutHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, sampleResult(), Options{Format: CSVOut, Precision: 0}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"month,kind,revenue", "2016-07-31,forecast,1200", "2016-08-31,forecast,-4"}, lines)
}

func TestWriteForecast_JSON(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	require.NoError(t, WriteForecast(&buf, res, Options{Format: JSONOut}))

	var decoded struct {
		Available bool                    `json:"available"`
		History   []models.MonthlyRevenue `json:"history"`
		Forecast  []models.ForecastPoint  `json:"forecast"`
		Params    forecast.Params         `json:"params"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Available)
	assert.Empty(t, decoded.History)
	assert.Len(t, decoded.Forecast, 2)
	assert.Equal(t, res.Params, decoded.Params)
	assert.Len(t, res.History, 2, "caller's result must not be modified")
}

func TestWriteForecast_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, sampleResult(), Options{Format: TableOut, IncludeHistory: true, Precision: 2}))

	out := buf.String()
	for _, s := range []string{"2016-05-31", "2016-08-31", "1200.25", "-3.50", "forecast", "history", "alpha=0.5000", "months=2"} {
		assert.Contains(t, out, s)
	}
	assert.Contains(t, strings.ToLower(out), "revenue")
}

func TestWriteUnavailable(t *testing.T) {
	ue := &forecast.UnavailableError{Reason: forecast.ReasonInsufficientHistory}

	var table bytes.Buffer
	require.NoError(t, WriteUnavailable(&table, ue, Options{Format: TableOut}))
	assert.Contains(t, table.String(), "Forecast unavailable:")
	assert.Contains(t, table.String(), "insufficient_history")

	var js bytes.Buffer
	require.NoError(t, WriteUnavailable(&js, ue, Options{Format: JSONOut}))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, false, decoded["available"])
	assert.Equal(t, "insufficient_history", decoded["reason"])

	var csvOut bytes.Buffer
	require.NoError(t, WriteUnavailable(&csvOut, ue, Options{Format: CSVOut}))
	assert.True(t, strings.HasPrefix(csvOut.String(), "available,reason,message\nfalse,insufficient_history,"))
}

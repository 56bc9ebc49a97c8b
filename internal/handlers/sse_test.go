package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bi-dashboard/internal/models"
	"bi-dashboard/internal/services"
)

func newTestSSEHandlers(a *services.Analytics) *SSEHandlers {
	return NewSSEHandlers(a, newTestForecaster(a), 6, quietLogger())
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := quietLogger()
	handlers := NewSSEHandlers(analytics, newTestForecaster(analytics), 3, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
	if handlers.defaultHorizon != 3 {
		t.Errorf("defaultHorizon = %d, want 3", handlers.defaultHorizon)
	}
}

func TestSSEHandlers_HeaderConsistency(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	sseEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"kpis", handlers.HandleKPIs},
		{"revenue-by-category", handlers.HandleRevenueByCategory},
		{"revenue-by-country", handlers.HandleRevenueByCountry},
		{"monthly-sales", handlers.HandleMonthlySales},
		{"forecast", handlers.HandleForecast},
		{"refresh-all", handlers.HandleRefreshAll},
	}

	for _, endpoint := range sseEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			endpoint.handler(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}

			body := w.Body.String()
			if !strings.Contains(body, "event:") || !strings.Contains(body, "data:") {
				t.Error("response should contain SSE event format")
			}
		})
	}
}

func TestSSEHandlers_HandleRevenueByCountry(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	req := httptest.NewRequest(http.MethodGet, "/sse/revenue-by-country", nil)
	w := httptest.NewRecorder()
	handlers.HandleRevenueByCountry(w, req)

	body := w.Body.String()
	expected := []string{
		"datastar-patch-elements",
		`id="country-content"`,
		"<th>Country</th>",
		"United States",
		"$2049.00",
		"Canada",
	}
	for _, content := range expected {
		if !strings.Contains(body, content) {
			t.Errorf("expected response to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleKPIs_Filtered(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	req := httptest.NewRequest(http.MethodGet, "/sse/kpis?category=Accessories", nil)
	w := httptest.NewRecorder()
	handlers.HandleKPIs(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "$20.00") {
		t.Error("filtered KPIs should show accessories revenue")
	}
	if strings.Contains(body, "$2069.00") {
		t.Error("filtered KPIs should not show the unfiltered total")
	}
}

func TestSSEHandlers_HandleMonthlySales(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	req := httptest.NewRequest(http.MethodGet, "/sse/monthly-sales", nil)
	w := httptest.NewRecorder()
	handlers.HandleMonthlySales(w, req)

	body := w.Body.String()
	for _, content := range []string{"datastar-patch-signals", "monthlyData", `id="pivot-content"`, "<th>2016</th>", "January"} {
		if !strings.Contains(body, content) {
			t.Errorf("expected response to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleForecast(t *testing.T) {
	tests := []struct {
		name      string
		analytics *services.Analytics
		path      string
		expected  []string
	}{
		{
			name:      "available",
			analytics: createSeasonalAnalytics(),
			path:      "/sse/forecast?horizon=3",
			expected:  []string{"forecastData", `"available":true`, `id="forecast-content"`, "Next 3 months", "2017-01"},
		},
		{
			name:      "insufficient history",
			analytics: createTestAnalytics(),
			path:      "/sse/forecast",
			expected:  []string{`"available":false`, "insufficient_history", "Forecast unavailable."},
		},
		{
			name:      "empty dataset",
			analytics: services.NewAnalyticsWithLogger(quietLogger()),
			path:      "/sse/forecast",
			expected:  []string{`"available":false`, "No sales data loaded", "Forecast unavailable."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := newTestSSEHandlers(tt.analytics)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handlers.HandleForecast(w, req)

			body := w.Body.String()
			for _, content := range tt.expected {
				if !strings.Contains(body, content) {
					t.Errorf("expected response to contain %q", content)
				}
			}
		})
	}
}

func TestSSEHandlers_InvalidHorizonIsJSONError(t *testing.T) {
	handlers := newTestSSEHandlers(createSeasonalAnalytics())

	tests := []struct {
		path    string
		handler http.HandlerFunc
		message string
	}{
		{"/sse/forecast?horizon=0", handlers.HandleForecast, "between 1 and 24 months"},
		{"/sse/forecast?horizon=-3", handlers.HandleForecast, "between 1 and 24 months"},
		{"/sse/forecast?horizon=99", handlers.HandleForecast, "between 1 and 24 months"},
		{"/sse/forecast?horizon=soon", handlers.HandleForecast, "horizon must be an integer"},
		{"/sse/refresh-all?horizon=99", handlers.HandleRefreshAll, "between 1 and 24 months"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got content-type %q", ct)
			}
			body := w.Body.String()
			if strings.Contains(body, "event:") {
				t.Error("stream must not open for an invalid horizon")
			}
			if !strings.Contains(body, tt.message) {
				t.Errorf("expected error message to contain %q, got %s", tt.message, body)
			}
		})
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all?year=2016", nil)
	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, signal := range []string{"monthlyData", "forecastData"} {
		if !strings.Contains(body, signal) {
			t.Errorf("response should contain %q signal", signal)
		}
	}
	for _, id := range []string{"kpi-content", "category-content", "country-content", "subcategory-content", "pivot-content", "forecast-content"} {
		if !strings.Contains(body, id) {
			t.Errorf("response should patch #%s", id)
		}
	}
}

func TestSSEHandlers_BadFilterIsJSONError(t *testing.T) {
	handlers := newTestSSEHandlers(createTestAnalytics())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all?year=next", nil)
	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got content-type %q", ct)
	}
}

func TestSSEHandlers_EmptyDataset(t *testing.T) {
	handlers := newTestSSEHandlers(services.NewAnalyticsWithLogger(quietLogger()))

	req := httptest.NewRequest(http.MethodGet, "/sse/revenue-by-category", nil)
	w := httptest.NewRecorder()
	handlers.HandleRevenueByCategory(w, req)

	if !strings.Contains(w.Body.String(), "<tbody></tbody>") {
		t.Error("empty dataset should render an empty table body")
	}
}

func TestSSEHandlers_EscapesMarkup(t *testing.T) {
	a := services.NewAnalyticsWithLogger(quietLogger())
	a.SetData([]models.Transaction{{Category: "<script>alert(1)</script>", Revenue: 1}})
	handlers := newTestSSEHandlers(a)

	req := httptest.NewRequest(http.MethodGet, "/sse/revenue-by-category", nil)
	w := httptest.NewRecorder()
	handlers.HandleRevenueByCategory(w, req)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("category names must be escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("expected escaped category name")
	}
}

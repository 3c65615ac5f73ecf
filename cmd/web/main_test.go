package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/server"
	"superstore-dashboard/internal/services"
)

func testServer() *server.Server {
	analytics := services.NewAnalytics()
	analytics.SetData([]models.Order{
		{
			OrderID:     "O1",
			OrderDate:   time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC),
			ShipMode:    "Second Class",
			Region:      "West",
			State:       "California",
			StateAbbr:   "CA",
			Segment:     "Consumer",
			Category:    "Furniture",
			SubCategory: "Chairs",
			Sales:       100,
			Profit:      10,
			Quantity:    2,
			Year:        2017,
			Month:       "2017-01",
		},
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard(analytics),
	}
	return server.NewServer(analytics, logger, templateHandlers)
}

func TestRoutes(t *testing.T) {
	srv := testServer()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"dashboard", http.MethodGet, "/", http.StatusOK, "Superstore Sales Dashboard"},
		{"health", http.MethodGet, "/health", http.StatusOK, "healthy"},
		{"stats", http.MethodGet, "/admin/stats", http.StatusOK, "record_count"},
		{"views", http.MethodGet, "/api/views", http.StatusOK, "summary"},
		{"filters", http.MethodGet, "/api/filters", http.StatusOK, "years"},
		{"sse views", http.MethodGet, "/sse/views", http.StatusOK, "kpi-strip"},
		{"sse filters", http.MethodGet, "/sse/filters", http.StatusOK, "filterOptions"},
		{"method not allowed", http.MethodPost, "/api/views", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestDashboardHeaders(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content type = %q, want text/html", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("cache control = %q, want %q", cc, cacheMaxAge)
	}
	// The dataset's filter options are baked into the selects.
	if body := w.Body.String(); !strings.Contains(body, `<option value="2017">`) {
		t.Error("dashboard missing year options")
	}
}

func TestAPIResponsesAreValidJSON(t *testing.T) {
	srv := testServer()

	for _, path := range []string{"/health", "/admin/stats", "/api/views", "/api/filters"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			var response map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("invalid JSON from %s: %v", path, err)
			}
			if success, ok := response["success"].(bool); !ok || !success {
				t.Errorf("success = %v, want true", response["success"])
			}
		})
	}
}

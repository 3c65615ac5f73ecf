package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// selectionFromQuery builds the filter selection for one interaction from
// query parameters; absent parameters mean "All".
func selectionFromQuery(r *http.Request) models.FilterSelection {
	q := r.URL.Query()
	return models.FilterSelection{
		Year:     q.Get("year"),
		Region:   q.Get("region"),
		Segment:  q.Get("segment"),
		Category: q.Get("category"),
	}
}

// HandleViews returns the full aggregate bundle for the requested filter
// selection. Any selection is valid; an unmatched one yields empty tables.
func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	bundle := h.analytics.ComputeViews(selectionFromQuery(r))

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, bundle, headers)
}

// HandleFilters returns the dropdown options derived from the dataset.
func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	options := h.analytics.FilterOptions()

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, options, headers)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

// ExportHandler handles log export endpoints
type ExportHandler struct {
	exporter      *services.Exporter
	defaultFormat string
	logger        *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exporter *services.Exporter, defaultFormat string, log *logger.Logger) *ExportHandler {
	if defaultFormat == "" {
		defaultFormat = services.FormatJSON
	}
	return &ExportHandler{
		exporter:      exporter,
		defaultFormat: defaultFormat,
		logger:        log.WithComponent("export-handler"),
	}
}

// ExportRequest is the request body for log exports
type ExportRequest struct {
	Category  string `json:"category"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Format    string `json:"format,omitempty"`
}

// Export handles POST /api/v1/export - renders a date range of one log
// category as a downloadable CSV or JSON document
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category := storage.Category(req.Category)
	switch category {
	case storage.CategoryEmotions, storage.CategoryPhishing, storage.CategoryAlerts,
		storage.CategoryConversations, storage.CategoryReports:
	default:
		http.Error(w, fmt.Sprintf("Unknown log category %q", req.Category), http.StatusBadRequest)
		return
	}

	if _, err := time.Parse(storage.DayFormat, req.StartDate); err != nil {
		http.Error(w, "Invalid start_date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(storage.DayFormat, req.EndDate); err != nil {
		http.Error(w, "Invalid end_date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	format := req.Format
	if format == "" {
		format = h.defaultFormat
	}
	switch format {
	case services.FormatCSV, services.FormatJSON:
	default:
		http.Error(w, fmt.Sprintf("Unsupported export format %q", format), http.StatusBadRequest)
		return
	}
	if format == services.FormatCSV && category == storage.CategoryReports {
		http.Error(w, "Reports can only be exported as JSON", http.StatusBadRequest)
		return
	}

	payload, err := h.exporter.Export(r.Context(), category, req.StartDate, req.EndDate, format)
	if err != nil {
		h.logger.Error().Err(err).
			Str("category", req.Category).
			Str("format", format).
			Msg("export failed")
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("category", req.Category).
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Str("format", format).
		Int("bytes", len(payload)).
		Msg("logs exported")

	fileName := services.FileName(category, req.StartDate, req.EndDate, format)
	if format == services.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Write(payload)
}

// Activity handles GET /api/v1/export/activity?start=&end= - a summary of
// assistant conversations over a date range
func (h *ExportHandler) Activity(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if _, err := time.Parse(storage.DayFormat, start); err != nil {
		http.Error(w, "Invalid start (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(storage.DayFormat, end); err != nil {
		http.Error(w, "Invalid end (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	report, err := h.exporter.ConversationReport(r.Context(), start, end)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build conversation report")
		http.Error(w, "Failed to build conversation report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

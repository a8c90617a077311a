package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"careguard/internal/domain/models"
	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

const maxAlertDays = 90

// AlertsHandler handles caregiver alert endpoints
type AlertsHandler struct {
	engine *services.AlertEngine
	store  storage.LogStore
	logger *logger.Logger
}

// NewAlertsHandler creates a new alerts handler
func NewAlertsHandler(engine *services.AlertEngine, store storage.LogStore, log *logger.Logger) *AlertsHandler {
	return &AlertsHandler{
		engine: engine,
		store:  store,
		logger: log.WithComponent("alerts-handler"),
	}
}

// List handles GET /api/v1/alerts?days=N - persisted alerts over a
// trailing window, oldest first
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil || days < 1 || days > maxAlertDays {
		http.Error(w, fmt.Sprintf("Invalid days parameter (want 1-%d)", maxAlertDays), http.StatusBadRequest)
		return
	}

	now := time.Now()
	raw, err := h.store.ReadRange(r.Context(), storage.CategoryAlerts, now.AddDate(0, 0, -days), now)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read alerts")
		http.Error(w, "Failed to read alerts", http.StatusInternalServerError)
		return
	}

	alerts := make([]*models.Alert, 0, len(raw))
	for _, doc := range raw {
		var alert models.Alert
		if err := json.Unmarshal(doc, &alert); err != nil {
			h.logger.Warn().Err(err).Msg("skipping malformed alert record")
			continue
		}
		alerts = append(alerts, &alert)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Check handles POST /api/v1/alerts/check - runs all alert checks now and
// returns whatever was raised
func (h *AlertsHandler) Check(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.CheckAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("alert check failed")
		http.Error(w, "Alert check failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int("raised", len(alerts)).Msg("alert check completed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

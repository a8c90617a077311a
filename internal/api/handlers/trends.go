package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"careguard/internal/domain/models"
	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/cache"
	"careguard/pkg/logger"
)

const (
	defaultTrendDays = 7
	maxTrendDays     = 90
	trendsCacheTTL   = 5 * time.Minute
)

// TrendsHandler handles emotion trend endpoints
type TrendsHandler struct {
	trends *services.TrendAggregator
	cache  *cache.RedisCache
	logger *logger.Logger
}

// NewTrendsHandler creates a new trends handler
func NewTrendsHandler(trends *services.TrendAggregator, c *cache.RedisCache, log *logger.Logger) *TrendsHandler {
	return &TrendsHandler{
		trends: trends,
		cache:  c,
		logger: log.WithComponent("trends-handler"),
	}
}

// Daily handles GET /api/v1/trends/daily?days=N - per-day emotion stats
// over a trailing window, cached briefly when Redis is wired
func (h *TrendsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil || days < 1 || days > maxTrendDays {
		http.Error(w, fmt.Sprintf("Invalid days parameter (want 1-%d)", maxTrendDays), http.StatusBadRequest)
		return
	}

	cacheKey := fmt.Sprintf("%s%d", cache.KeyDailyTrendsPrefix, days)
	if h.cache != nil {
		var cached map[string]models.DailyEmotionStats
		if err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			json.NewEncoder(w).Encode(cached)
			return
		}
	}

	stats, err := h.trends.DailyStatsWindow(r.Context(), days)
	if err != nil {
		h.logger.Error().Err(err).Int("days", days).Msg("failed to compute daily stats")
		http.Error(w, "Failed to compute daily stats", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), cacheKey, stats, trendsCacheTTL); err != nil {
			h.logger.Warn().Err(err).Msg("failed to cache daily stats")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Weekly handles GET /api/v1/trends/weekly - generates the 7-day report,
// persists it to the reports log and returns it
func (h *TrendsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	report, err := h.trends.WeeklyReport(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate weekly report")
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	if err := h.trends.SaveReport(r.Context(), report); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist weekly report")
		http.Error(w, "Failed to persist report", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("period_start", report.PeriodStart).
		Str("period_end", report.PeriodEnd).
		Bool("depression_risk", report.DepressionRisk).
		Msg("weekly report generated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// Risk handles GET /api/v1/trends/risk?days=N&threshold=T - sustained
// negative-emotion detection over an ad-hoc window
func (h *TrendsHandler) Risk(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil || days < 1 || days > maxTrendDays {
		http.Error(w, fmt.Sprintf("Invalid days parameter (want 1-%d)", maxTrendDays), http.StatusBadRequest)
		return
	}

	threshold := 0.6
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			http.Error(w, "Invalid threshold parameter (want 0 < t <= 1)", http.StatusBadRequest)
			return
		}
	}

	risk, err := h.trends.DetectSustainedRisk(r.Context(), days, threshold)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to detect sustained risk")
		http.Error(w, "Failed to detect sustained risk", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"depression_risk": risk,
		"window_days":     days,
		"threshold":       threshold,
	})
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

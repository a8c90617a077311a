package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store     storage.LogStore
	cache     *cache.RedisCache
	scheduler *services.Scheduler
	version   string
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store storage.LogStore, c *cache.RedisCache, sched *services.Scheduler, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		cache:     c,
		scheduler: sched,
		version:   version,
		logger:    log.WithComponent("health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Ready handles GET /ready - checks all dependencies
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := http.StatusOK
	overallStatus := "ready"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check the record store with a cheap single-day read
	if h.store != nil {
		if _, err := h.store.ReadDay(ctx, storage.CategoryEmotions, time.Now()); err != nil {
			checks["store"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			overallStatus = "not ready"
		} else {
			checks["store"] = "healthy"
		}
	} else {
		checks["store"] = "not configured"
		status = http.StatusServiceUnavailable
		overallStatus = "not ready"
	}

	// Check Redis when wired
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			overallStatus = "not ready"
		} else {
			checks["redis"] = "healthy"
		}
	}

	// Scheduler state is informational only
	if h.scheduler != nil {
		if h.scheduler.Stats().Running {
			checks["scheduler"] = "running"
		} else {
			checks["scheduler"] = "stopped"
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

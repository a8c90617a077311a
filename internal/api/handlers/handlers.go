package handlers

import (
	"careguard/internal/config"
	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/storage"
	"careguard/internal/streaming"
	"careguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Analysis  *AnalysisHandler
	Trends    *TrendsHandler
	Alerts    *AlertsHandler
	Lexicons  *LexiconsHandler
	Export    *ExportHandler
	Streaming *StreamingHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Config    *config.Config
	Store     storage.LogStore
	Lexicons  *services.LexiconStore
	Emotion   *services.EmotionScorer
	Phishing  *services.PhishingScorer
	Trends    *services.TrendAggregator
	Alerts    *services.AlertEngine
	Assistant *services.Assistant
	Exporter  *services.Exporter
	Scheduler *services.Scheduler
	Cache     *cache.RedisCache
	EventBus  *streaming.EventBus
	WSHub     *streaming.WebSocketHub
	Logger    *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Store, deps.Cache, deps.Scheduler, deps.Config.App.Version, deps.Logger),
		Analysis:  NewAnalysisHandler(deps.Assistant, deps.Emotion, deps.Phishing, deps.Store, deps.Logger),
		Trends:    NewTrendsHandler(deps.Trends, deps.Cache, deps.Logger),
		Alerts:    NewAlertsHandler(deps.Alerts, deps.Store, deps.Logger),
		Lexicons:  NewLexiconsHandler(deps.Lexicons, deps.Logger),
		Export:    NewExportHandler(deps.Exporter, deps.Config.Export.Format, deps.Logger),
		Streaming: NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
	}
}

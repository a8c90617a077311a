package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"careguard/internal/api/handlers"
	apimiddleware "careguard/internal/api/middleware"
	"careguard/internal/config"
	"careguard/internal/infrastructure/cache"
	"careguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   *config.Config
	handlers *handlers.Handlers
	cache    *cache.RedisCache
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg *config.Config, h *handlers.Handlers, c *cache.RedisCache, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		cache:    c,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Rate limiting
	if r.config.RateLimit.Enabled && r.cache != nil {
		router.Use(apimiddleware.RateLimiter(r.cache, r.config.RateLimit))
	}

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
	})

	// API v1 routes
	router.Route("/api/v1", func(api chi.Router) {
		// API key auth when a key is configured
		if r.config.Auth.APIKey != "" {
			api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKey))
		}

		// Analysis endpoints
		api.Route("/analyze", func(analyze chi.Router) {
			analyze.Post("/message", r.handlers.Analysis.Message)
			analyze.Post("/emotion", r.handlers.Analysis.Emotion)
			analyze.Post("/phishing", r.handlers.Analysis.Phishing)
			analyze.Post("/conversation", r.handlers.Analysis.Conversation)
		})

		// Trend endpoints
		api.Route("/trends", func(trends chi.Router) {
			trends.Get("/daily", r.handlers.Trends.Daily)
			trends.Get("/weekly", r.handlers.Trends.Weekly)
			trends.Get("/risk", r.handlers.Trends.Risk)
		})

		// Alert endpoints
		api.Route("/alerts", func(alerts chi.Router) {
			alerts.Get("/", r.handlers.Alerts.List)
			alerts.Post("/check", r.handlers.Alerts.Check)
		})

		// Lexicon endpoints
		api.Route("/lexicons", func(lex chi.Router) {
			lex.Get("/emotion", r.handlers.Lexicons.Emotion)
			lex.Get("/phishing", r.handlers.Lexicons.Phishing)
		})

		// Export endpoints
		api.Route("/export", func(export chi.Router) {
			export.Post("/", r.handlers.Export.Export)
			export.Get("/activity", r.handlers.Export.Activity)
		})
	})

	// WebSocket streaming endpoint (live events for caregiver dashboards)
	router.Get("/api/v1/ws", r.handlers.Streaming.HandleWebSocket)
	router.Get("/api/v1/streaming/stats", r.handlers.Streaming.GetStats)

	return router
}

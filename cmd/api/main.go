package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"careguard/internal/api"
	"careguard/internal/api/handlers"
	"careguard/internal/config"
	"careguard/internal/domain/services"
	"careguard/internal/grpc/grpchealth"
	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/database"
	"careguard/internal/infrastructure/storage"
	"careguard/internal/llm"
	"careguard/internal/metrics"
	"careguard/internal/streaming"
	"careguard/pkg/logger"
)

func main() {
	// .env is optional and only used for local development
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting careguard")

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Infrastructure. Redis is optional unless it backs the record store;
	// Postgres is only dialed when it is the record store backend.
	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		if cfg.Storage.Backend == "redis" {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		redisCache = nil
	}
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	var pg *database.PostgresDB
	if cfg.Storage.Backend == "postgres" {
		pg, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer pg.Close()
	}

	// Record store
	store, err := storage.New(ctx, cfg, redisCache, pg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open record store")
	}
	store = storage.WithMetrics(store)
	defer store.Close()
	log.Info().Str("backend", cfg.Storage.Backend).Msg("record store initialized")

	// Streaming infrastructure
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing with local events only")
		} else {
			log.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
		}
	}

	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()

	wsHub := streaming.NewWebSocketHub(log)
	go wsHub.Run(ctx)

	// Feed every published event to connected WebSocket clients
	events, unsubscribe := eventBus.Subscribe(ctx, nil)
	defer unsubscribe()
	go func() {
		for event := range events {
			wsHub.BroadcastEvent(event)
		}
	}()

	// LLM client; nil when disabled or unconfigured
	var classifier services.Classifier
	var generator services.TextGenerator
	if llmClient := llm.New(cfg.LLM, log); llmClient != nil {
		classifier = llmClient
		generator = llmClient
		log.Info().Str("model", cfg.LLM.Model).Msg("LLM client initialized")
	} else {
		log.Warn().Msg("running without LLM, pattern detection and canned replies only")
	}

	// Domain services
	lexicons := services.NewLexiconStore(cfg.Detection.LexiconDir, log)
	emotion := services.NewEmotionScorer(lexicons.Emotion(), log)
	phishing := services.NewPhishingScorer(lexicons.Phishing(), classifier, cfg.Detection.PhishingThreshold, log)
	trends := services.NewTrendAggregator(store, log)
	alerts := services.NewAlertEngine(store, trends, eventBus, cfg.Alerting, log)
	assistant := services.NewAssistant(emotion, phishing, alerts, store, eventBus, generator, log)
	exporter := services.NewExporter(store, cfg.Export.Dir, log)
	scheduler := services.NewScheduler(alerts, trends, eventBus, cfg.Scheduler, log)

	// HTTP API
	deps := handlers.Dependencies{
		Config:    cfg,
		Store:     store,
		Lexicons:  lexicons,
		Emotion:   emotion,
		Phishing:  phishing,
		Trends:    trends,
		Alerts:    alerts,
		Assistant: assistant,
		Exporter:  exporter,
		Scheduler: scheduler,
		Cache:     redisCache,
		EventBus:  eventBus,
		WSHub:     wsHub,
		Logger:    log,
	}
	h := handlers.NewHandlers(deps)
	router := api.NewRouter(cfg, h, redisCache, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// gRPC health listener
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()
	grpchealth.Register(ctx, grpcServer, store, redisCache)

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC health server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	// Ops listener: Prometheus metrics and a liveness probe
	opsRouter := mux.NewRouter()
	opsRouter.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	opsRouter.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	opsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.OpsPort),
		Handler:      opsRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", opsServer.Addr).Msg("starting ops server")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()

	// Background scheduler
	if cfg.Scheduler.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("scheduler stopped with error")
			}
		}()
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server shutdown error")
	}

	scheduler.Stop()

	log.Info().Msg("shutdown complete")
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"careguard/internal/config"
	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/database"
	"careguard/internal/infrastructure/storage"
	"careguard/internal/llm"
	"careguard/pkg/logger"
)

func main() {
	mode := flag.String("mode", "chat", "run mode: chat, report or export")
	configPath := flag.String("config", "", "path to config file")
	category := flag.String("category", "", "log category to export (emotions, phishing, alerts, conversations, reports)")
	startDate := flag.String("start", "", "export start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "export end date (YYYY-MM-DD)")
	format := flag.String("format", "", "export format (csv or json)")
	flag.Parse()

	// .env is optional and only used for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
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
	log = log.WithComponent("assistant-cli")
	logger.SetGlobal(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Infrastructure. Redis and Postgres are dialed only when the record
	// store backend needs them.
	var redisCache *cache.RedisCache
	if cfg.Storage.Backend == "redis" {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCache.Close()
	}

	var pg *database.PostgresDB
	if cfg.Storage.Backend == "postgres" {
		pg, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer pg.Close()
	}

	store, err := storage.New(ctx, cfg, redisCache, pg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open record store")
	}
	defer store.Close()

	// Domain services. The event bus stays nil: a CLI session has no
	// subscribers to feed.
	var classifier services.Classifier
	var generator services.TextGenerator
	if llmClient := llm.New(cfg.LLM, log); llmClient != nil {
		classifier = llmClient
		generator = llmClient
	}

	lexicons := services.NewLexiconStore(cfg.Detection.LexiconDir, log)
	emotion := services.NewEmotionScorer(lexicons.Emotion(), log)
	phishing := services.NewPhishingScorer(lexicons.Phishing(), classifier, cfg.Detection.PhishingThreshold, log)
	trends := services.NewTrendAggregator(store, log)
	alerts := services.NewAlertEngine(store, trends, nil, cfg.Alerting, log)
	assistant := services.NewAssistant(emotion, phishing, alerts, store, nil, generator, log)
	exporter := services.NewExporter(store, cfg.Export.Dir, log)

	switch *mode {
	case "chat":
		runChat(ctx, assistant, trends, log)
	case "report":
		if err := runReport(ctx, trends); err != nil {
			log.Error().Err(err).Msg("report generation failed")
			fmt.Println("보고서 생성에 실패했습니다.")
			os.Exit(1)
		}
	case "export":
		if err := runExport(ctx, exporter, cfg.Export.Format, *category, *startDate, *endDate, *format); err != nil {
			log.Error().Err(err).Msg("export failed")
			fmt.Println("로그 내보내기에 실패했습니다.")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q (want chat, report or export)\n", *mode)
		os.Exit(2)
	}
}

// runChat runs the interactive analysis loop. Besides free text it accepts
// the commands exit/quit/종료, reset and report.
func runChat(ctx context.Context, assistant *services.Assistant, trends *services.TrendAggregator, log *logger.Logger) {
	banner := strings.Repeat("=", 50)
	fmt.Println(banner)
	fmt.Println("CareGuard AI 비서 - 대화형 모드")
	fmt.Println("종료하려면 'exit' 또는 'quit'를 입력하세요.")
	fmt.Println(banner)

	// Ctrl-C behaves like a quit command
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nAI 비서를 종료합니다.")
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n사용자 > ")
		if !scanner.Scan() {
			fmt.Println("\nAI 비서를 종료합니다.")
			return
		}
		input := scanner.Text()

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "exit", "quit", "종료":
			fmt.Println("AI 비서를 종료합니다.")
			return
		case "reset":
			fmt.Println("비서 > " + assistant.Reset())
			continue
		case "report":
			if err := runReport(ctx, trends); err != nil {
				log.Error().Err(err).Msg("report generation failed")
				fmt.Println("비서 > 보고서 생성에 실패했습니다.")
			}
			continue
		}

		turn, err := assistant.ProcessMessage(ctx, input)
		if err != nil {
			log.Warn().Err(err).Msg("turn completed with persistence errors")
		}
		fmt.Println("비서 > " + turn.Reply)

		for _, alert := range turn.Alerts {
			fmt.Printf("[알림:%s] %s\n", alert.Severity, alert.Message)
		}
	}
}

// runReport generates and persists the weekly report and prints a summary.
func runReport(ctx context.Context, trends *services.TrendAggregator) error {
	report, err := trends.WeeklyReport(ctx)
	if err != nil {
		return err
	}
	if err := trends.SaveReport(ctx, report); err != nil {
		return err
	}

	fmt.Println("주간 보고서가 생성되었습니다:")
	fmt.Printf("  기간: %s ~ %s\n", report.PeriodStart, report.PeriodEnd)
	fmt.Printf("  주요 감정: %s\n", report.DominantCategory)
	if report.DepressionRisk {
		fmt.Println("  우울 위험: 감지됨")
	} else {
		fmt.Println("  우울 위험: 없음")
	}
	if len(report.TopKeywords) > 0 {
		parts := make([]string, 0, len(report.TopKeywords))
		for _, kw := range report.TopKeywords {
			parts = append(parts, fmt.Sprintf("%s(%d)", kw.Keyword, kw.Count))
		}
		fmt.Printf("  주요 키워드: %s\n", strings.Join(parts, ", "))
	}
	return nil
}

// runExport renders one log category to a file under the export directory.
func runExport(ctx context.Context, exporter *services.Exporter, defaultFormat, category, startDate, endDate, format string) error {
	cat := storage.Category(category)
	switch cat {
	case storage.CategoryEmotions, storage.CategoryPhishing, storage.CategoryAlerts,
		storage.CategoryConversations, storage.CategoryReports:
	default:
		return fmt.Errorf("unknown log category %q", category)
	}
	if startDate == "" || endDate == "" {
		return fmt.Errorf("both -start and -end are required (YYYY-MM-DD)")
	}
	if format == "" {
		format = defaultFormat
	}

	path, err := exporter.ExportToFile(ctx, cat, startDate, endDate, format)
	if err != nil {
		return err
	}

	fmt.Printf("로그가 성공적으로 내보내졌습니다: %s\n", path)
	return nil
}

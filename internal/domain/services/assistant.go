package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
	"careguard/internal/metrics"
	"careguard/internal/streaming"
	"careguard/pkg/logger"
)

// Canned Korean replies for the orchestration edge cases.
const (
	replyEmptyMessage     = "메시지가 비어있습니다. 질문이나 대화를 입력해주세요."
	replyGenerationFailed = "죄송합니다. 응답을 생성하는 데 문제가 발생했습니다."
	replyProcessingError  = "죄송합니다. 메시지를 처리하는 중에 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	replyHistoryCleared   = "대화 기록이 초기화되었습니다."

	comfortSuffix = "\n\n혹시 무슨 일이 있으신가요? 도움이 필요하시면 말씀해주세요."

	phishingWarningFormat = "⚠️ 주의: 이 대화에서 보이스피싱 의심 징후가 감지되었습니다! (%.2f점)\n\n%s\n\n%s"
	phishingWarningAdvice = "개인정보나 금융정보를 제공하지 마시고, 의심스러운 요청은 해당 기관에 직접 문의하세요."
)

// Comfort suffix requires at least this much emotion confidence.
const comfortConfidenceMin = 0.7

// Alert checks run once per this many history entries.
const alertCheckEvery = 10

// TextGenerator produces conversational replies. history alternates
// user/assistant entries, oldest first. Callers must not wrap a nil
// concrete client in this interface.
type TextGenerator interface {
	Generate(ctx context.Context, history []string, input string) (string, error)
}

// Assistant orchestrates one conversation: every utterance is scored for
// phishing and emotion, both records are persisted, and the reply is
// either a phishing warning or a generated response.
type Assistant struct {
	emotion   *EmotionScorer
	phishing  *PhishingScorer
	alerts    *AlertEngine
	store     storage.LogStore
	bus       *streaming.EventBus
	generator TextGenerator
	logger    *logger.Logger

	mu      sync.Mutex
	history []string
}

// NewAssistant creates a new Assistant. bus and generator may be nil.
func NewAssistant(
	emotion *EmotionScorer,
	phishing *PhishingScorer,
	alerts *AlertEngine,
	store storage.LogStore,
	bus *streaming.EventBus,
	generator TextGenerator,
	log *logger.Logger,
) *Assistant {
	return &Assistant{
		emotion:   emotion,
		phishing:  phishing,
		alerts:    alerts,
		store:     store,
		bus:       bus,
		generator: generator,
		logger:    log.WithComponent("assistant"),
	}
}

// ProcessMessage analyzes one user message and produces the reply turn.
// Analysis never aborts the turn; persistence failures are returned
// alongside the completed turn so the caller can decide.
func (a *Assistant) ProcessMessage(ctx context.Context, text string) (*models.AssistantTurn, error) {
	if strings.TrimSpace(text) == "" {
		return &models.AssistantTurn{Reply: replyEmptyMessage}, nil
	}

	a.mu.Lock()
	a.history = append(a.history, text)
	a.mu.Unlock()

	var persistErr error

	// 1. Phishing check always runs and is always persisted
	start := time.Now()
	verdict := a.phishing.Detect(ctx, text)
	metrics.AnalysisDuration.WithLabelValues("phishing").Observe(time.Since(start).Seconds())
	metrics.AnalysisTotal.WithLabelValues("phishing", string(verdict.RiskLevel)).Inc()

	if err := a.store.Append(ctx, storage.CategoryPhishing, verdict.Timestamp, verdict); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist phishing verdict")
		persistErr = err
	}

	// 2. Emotion analysis always runs too, even for phishing texts
	start = time.Now()
	record := a.emotion.Analyze(text)
	metrics.AnalysisDuration.WithLabelValues("emotion").Observe(time.Since(start).Seconds())
	metrics.AnalysisTotal.WithLabelValues("emotion", string(record.Category)).Inc()

	if err := a.store.Append(ctx, storage.CategoryEmotions, record.Timestamp, record); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist emotion record")
		if persistErr == nil {
			persistErr = err
		}
	}

	if a.bus != nil {
		if err := a.bus.Publish(ctx, streaming.NewMessageAnalyzedEvent(record, verdict)); err != nil {
			a.logger.Warn().Err(err).Msg("failed to publish analysis event")
		}
	}

	// 3. Suspicious enough verdicts short-circuit the reply with a warning
	turn := &models.AssistantTurn{Emotion: record, Phishing: verdict}
	if verdict.IsPhishing && (verdict.RiskLevel == models.RiskHigh || verdict.RiskLevel == models.RiskMedium) {
		turn.Warning = true
		turn.Reply = a.phishingWarning(verdict)
		a.logger.Warn().
			Float64("score", verdict.Score).
			Str("risk_level", string(verdict.RiskLevel)).
			Msg("phishing suspicion detected, replying with warning")
	} else {
		turn.Reply = a.generateReply(ctx, text)
		if record.Category == models.CategoryNegative && record.Confidence > comfortConfidenceMin {
			turn.Reply += comfortSuffix
		}
	}

	// 4. Log the completed turn
	entry := &models.ConversationLogEntry{
		Timestamp:  time.Now(),
		UserInput:  text,
		AIResponse: turn.Reply,
		Keywords:   record.Keywords,
		Metadata: map[string]any{
			"emotion":           record.DominantEmotion,
			"emotion_category":  string(record.Category),
			"phishing_detected": turn.Warning,
			"risk_level":        string(verdict.RiskLevel),
		},
	}
	if err := a.store.Append(ctx, storage.CategoryConversations, entry.Timestamp, entry); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist conversation entry")
		if persistErr == nil {
			persistErr = err
		}
	}

	a.mu.Lock()
	a.history = append(a.history, turn.Reply)
	historyLen := len(a.history)
	a.mu.Unlock()

	// 5. Periodic alert sweep; failures never abort the turn
	if historyLen%alertCheckEvery == 0 {
		alerts, err := a.alerts.CheckAll(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("alert sweep failed")
		}
		turn.Alerts = alerts
	}

	return turn, persistErr
}

// phishingWarning renders the short-circuit warning reply.
func (a *Assistant) phishingWarning(verdict *models.PhishingVerdict) string {
	return fmt.Sprintf(phishingWarningFormat, verdict.Score, verdict.Explanation, phishingWarningAdvice)
}

// generateReply asks the text generator for a reply, with the recent
// history for context. Without a generator, or on failure, canned
// apologies keep the conversation alive.
func (a *Assistant) generateReply(ctx context.Context, input string) string {
	if a.generator == nil {
		return replyGenerationFailed
	}

	a.mu.Lock()
	// history already contains the current input; context is everything before it
	history := make([]string, len(a.history)-1)
	copy(history, a.history[:len(a.history)-1])
	a.mu.Unlock()

	reply, err := a.generator.Generate(ctx, history, input)
	if err != nil {
		a.logger.Error().Err(err).Msg("reply generation failed")
		return replyProcessingError
	}
	if strings.TrimSpace(reply) == "" {
		return replyGenerationFailed
	}
	return reply
}

// Reset clears the in-memory conversation history and returns the
// confirmation message shown to the user.
func (a *Assistant) Reset() string {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()

	a.logger.Info().Msg("conversation history cleared")
	return replyHistoryCleared
}

// HistoryLen returns the number of stored history entries (two per turn).
func (a *Assistant) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

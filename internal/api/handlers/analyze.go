package handlers

import (
	"encoding/json"
	"net/http"

	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

// AnalysisHandler handles utterance analysis endpoints
type AnalysisHandler struct {
	assistant *services.Assistant
	emotion   *services.EmotionScorer
	phishing  *services.PhishingScorer
	store     storage.LogStore
	logger    *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(assistant *services.Assistant, emotion *services.EmotionScorer, phishing *services.PhishingScorer, store storage.LogStore, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		assistant: assistant,
		emotion:   emotion,
		phishing:  phishing,
		store:     store,
		logger:    log.WithComponent("analysis-handler"),
	}
}

// TextRequest is the request body for single-utterance analysis
type TextRequest struct {
	Text string `json:"text"`
}

// ConversationRequest is the request body for conversation analysis
type ConversationRequest struct {
	Messages []string `json:"messages"`
}

// Message handles POST /api/v1/analyze/message - runs the full assistant
// turn: phishing screening, emotion scoring, reply generation, alert sweep.
// Empty input is handled by the assistant itself and still yields a reply.
func (h *AnalysisHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.assistant.ProcessMessage(r.Context(), req.Text)
	if err != nil {
		// The turn is still usable when only persistence failed
		h.logger.Error().Err(err).Msg("message processed with errors")
	}
	if turn == nil {
		http.Error(w, "Message processing failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Bool("warning", turn.Warning).
		Int("alerts", len(turn.Alerts)).
		Msg("message processed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turn)
}

// Emotion handles POST /api/v1/analyze/emotion - scores a single utterance
// and appends the record to the emotions log
func (h *AnalysisHandler) Emotion(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	record := h.emotion.Analyze(req.Text)

	if err := h.store.Append(r.Context(), storage.CategoryEmotions, record.Timestamp, record); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist emotion record")
		http.Error(w, "Failed to persist analysis", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("dominant_emotion", record.DominantEmotion).
		Str("category", string(record.Category)).
		Float64("confidence", record.Confidence).
		Msg("emotion analyzed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// Phishing handles POST /api/v1/analyze/phishing - screens a single
// utterance and appends the verdict to the phishing log
func (h *AnalysisHandler) Phishing(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	verdict := h.phishing.Detect(r.Context(), req.Text)

	if err := h.store.Append(r.Context(), storage.CategoryPhishing, verdict.Timestamp, verdict); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist phishing verdict")
		http.Error(w, "Failed to persist analysis", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Bool("is_phishing", verdict.IsPhishing).
		Str("risk_level", string(verdict.RiskLevel)).
		Float64("score", verdict.Score).
		Msg("phishing analyzed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verdict)
}

// Conversation handles POST /api/v1/analyze/conversation - scores the user
// turns of a transcript without persisting anything. An empty transcript
// yields the documented neutral analysis.
func (h *AnalysisHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	var req ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	analysis := h.emotion.AnalyzeConversation(req.Messages)

	h.logger.Info().
		Int("messages", len(req.Messages)).
		Str("overall_emotion", string(analysis.OverallEmotion)).
		Str("trend", string(analysis.Trend)).
		Msg("conversation analyzed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis)
}

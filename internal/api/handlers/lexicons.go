package handlers

import (
	"encoding/json"
	"net/http"

	"careguard/internal/domain/services"
	"careguard/pkg/logger"
)

// LexiconsHandler exposes the loaded keyword lexicons so caregivers can
// inspect what the scorers are matching against
type LexiconsHandler struct {
	lexicons *services.LexiconStore
	logger   *logger.Logger
}

// NewLexiconsHandler creates a new lexicons handler
func NewLexiconsHandler(lexicons *services.LexiconStore, log *logger.Logger) *LexiconsHandler {
	return &LexiconsHandler{
		lexicons: lexicons,
		logger:   log.WithComponent("lexicons-handler"),
	}
}

// Emotion handles GET /api/v1/lexicons/emotion
func (h *LexiconsHandler) Emotion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.lexicons.Emotion())
}

// Phishing handles GET /api/v1/lexicons/phishing
func (h *LexiconsHandler) Phishing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.lexicons.Phishing())
}

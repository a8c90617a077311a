package services

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"careguard/internal/domain/models"
	"careguard/pkg/logger"
)

const (
	emotionLexiconFile  = "emotion_patterns.json"
	phishingLexiconFile = "phishing_patterns.json"
)

// LexiconStore loads the keyword lexicons the scorers run on. A missing
// file or a file without the required keys falls back to the built-in
// defaults, which are written back so operators can edit them in place.
// Lexicons are loaded once at construction and shared read-only.
type LexiconStore struct {
	dir    string
	logger *logger.Logger

	emotion  *models.EmotionLexicon
	phishing *models.PhishingLexicon
}

// NewLexiconStore loads both lexicons from dir.
func NewLexiconStore(dir string, log *logger.Logger) *LexiconStore {
	s := &LexiconStore{
		dir:    dir,
		logger: log.WithComponent("lexicons"),
	}
	s.emotion = s.loadEmotion()
	s.phishing = s.loadPhishing()
	return s
}

// Emotion returns the loaded emotion lexicon.
func (s *LexiconStore) Emotion() *models.EmotionLexicon {
	return s.emotion
}

// Phishing returns the loaded phishing lexicon.
func (s *LexiconStore) Phishing() *models.PhishingLexicon {
	return s.phishing
}

func (s *LexiconStore) loadEmotion() *models.EmotionLexicon {
	path := filepath.Join(s.dir, emotionLexiconFile)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str("path", path).Msg("emotion lexicon not found, using defaults")
		def := models.DefaultEmotionLexicon()
		s.persistDefault(path, def)
		return def
	}
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to read emotion lexicon, using defaults")
		return models.DefaultEmotionLexicon()
	}

	var lex models.EmotionLexicon
	if err := json.Unmarshal(data, &lex); err != nil {
		// Do not overwrite a file that may just need fixing by hand
		s.logger.Error().Err(err).Str("path", path).Msg("failed to parse emotion lexicon, using defaults")
		return models.DefaultEmotionLexicon()
	}
	if !lex.Valid() {
		s.logger.Warn().Str("path", path).Msg("emotion lexicon missing required keys, using defaults")
		def := models.DefaultEmotionLexicon()
		s.persistDefault(path, def)
		return def
	}

	s.logger.Info().Str("path", path).Int("emotions", len(lex.Emotions)).Msg("emotion lexicon loaded")
	return &lex
}

func (s *LexiconStore) loadPhishing() *models.PhishingLexicon {
	path := filepath.Join(s.dir, phishingLexiconFile)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str("path", path).Msg("phishing lexicon not found, using defaults")
		def := models.DefaultPhishingLexicon()
		s.persistDefault(path, def)
		return def
	}
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to read phishing lexicon, using defaults")
		return models.DefaultPhishingLexicon()
	}

	var lex models.PhishingLexicon
	if err := json.Unmarshal(data, &lex); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to parse phishing lexicon, using defaults")
		return models.DefaultPhishingLexicon()
	}
	if !lex.Valid() {
		s.logger.Warn().Str("path", path).Msg("phishing lexicon missing required keys, using defaults")
		def := models.DefaultPhishingLexicon()
		s.persistDefault(path, def)
		return def
	}

	s.logger.Info().
		Str("path", path).
		Int("high_risk", len(lex.HighRisk)).
		Int("medium_risk", len(lex.MediumRisk)).
		Int("low_risk", len(lex.LowRisk)).
		Msg("phishing lexicon loaded")
	return &lex
}

// persistDefault writes a default lexicon back so the next run finds it.
func (s *LexiconStore) persistDefault(path string, lexicon any) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to create lexicon directory")
		return
	}

	data, err := json.MarshalIndent(lexicon, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal default lexicon")
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to persist default lexicon")
		return
	}

	s.logger.Info().Str("path", path).Msg("default lexicon persisted")
}

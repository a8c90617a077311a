package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.Nop()}
}

func newTestStore(t *testing.T) storage.LogStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedEmotion(t *testing.T, store storage.LogStore, ts time.Time, category models.CoarseCategory, keywords ...string) {
	t.Helper()
	record := &models.EmotionRecord{
		ID:              uuid.New(),
		Timestamp:       ts,
		SourceText:      "seed",
		DominantEmotion: string(category),
		Category:        category,
		EmotionScores:   map[string]float64{},
		Confidence:      1.0,
		Keywords:        keywords,
	}
	if err := store.Append(context.Background(), storage.CategoryEmotions, ts, record); err != nil {
		t.Fatalf("seed emotion append: %v", err)
	}
}

func seedAlert(t *testing.T, store storage.LogStore, alertType models.AlertType, ts time.Time) {
	t.Helper()
	alert := &models.Alert{
		ID:        uuid.New(),
		Type:      alertType,
		Timestamp: ts,
		Severity:  models.SeverityWarning,
		Message:   "seed",
	}
	if err := store.Append(context.Background(), storage.CategoryAlerts, ts, alert); err != nil {
		t.Fatalf("seed alert append: %v", err)
	}
}

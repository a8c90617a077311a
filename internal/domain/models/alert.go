package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies the behavioral pattern that raised an alert.
type AlertType string

const (
	AlertDepression    AlertType = "depression"
	AlertEmotionChange AlertType = "emotion_change"
)

// AlertSeverity grades how urgently a caregiver should react.
type AlertSeverity string

const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
)

// Alert is a deduplicated caregiver notification. Append-only, persisted
// per day, never mutated or deleted. Details carries a type-specific
// payload; numeric values are float64 so a persisted alert re-reads equal.
type Alert struct {
	ID        uuid.UUID      `json:"id"`
	Type      AlertType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

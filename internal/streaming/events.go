package streaming

import (
	"time"

	"github.com/google/uuid"

	"careguard/internal/domain/models"
)

// EventType represents the type of care event
type EventType string

const (
	EventTypeMessageAnalyzed EventType = "message_analyzed"
	EventTypeAlertRaised     EventType = "alert_raised"
	EventTypeReportGenerated EventType = "report_generated"
)

// CareEvent represents a real-time analysis or alerting event
type CareEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Message analysis details
	DominantEmotion string                `json:"dominant_emotion,omitempty"`
	EmotionCategory models.CoarseCategory `json:"emotion_category,omitempty"`
	Confidence      float64               `json:"confidence,omitempty"`
	RiskLevel       models.RiskLevel      `json:"risk_level,omitempty"`
	PhishingScore   float64               `json:"phishing_score,omitempty"`
	IsPhishing      bool                  `json:"is_phishing,omitempty"`
	Keywords        []string              `json:"keywords,omitempty"`

	// Alert details
	AlertID       string               `json:"alert_id,omitempty"`
	AlertType     models.AlertType     `json:"alert_type,omitempty"`
	AlertSeverity models.AlertSeverity `json:"alert_severity,omitempty"`
	Message       string               `json:"message,omitempty"`

	// Report details
	PeriodStart    string `json:"period_start,omitempty"`
	PeriodEnd      string `json:"period_end,omitempty"`
	DepressionRisk bool   `json:"depression_risk,omitempty"`

	// Metadata
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessageAnalyzedEvent creates an event from one analyzed utterance
func NewMessageAnalyzedEvent(record *models.EmotionRecord, verdict *models.PhishingVerdict) *CareEvent {
	event := &CareEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeMessageAnalyzed,
		Timestamp: time.Now(),
	}

	if record != nil {
		event.DominantEmotion = record.DominantEmotion
		event.EmotionCategory = record.Category
		event.Confidence = record.Confidence
		event.Keywords = record.Keywords
	}
	if verdict != nil {
		event.RiskLevel = verdict.RiskLevel
		event.PhishingScore = verdict.Score
		event.IsPhishing = verdict.IsPhishing
	}

	return event
}

// NewAlertRaisedEvent creates an event from a raised alert
func NewAlertRaisedEvent(alert *models.Alert) *CareEvent {
	return &CareEvent{
		ID:            uuid.New().String(),
		Type:          EventTypeAlertRaised,
		Timestamp:     time.Now(),
		AlertID:       alert.ID.String(),
		AlertType:     alert.Type,
		AlertSeverity: alert.Severity,
		Message:       alert.Message,
		Metadata:      alert.Details,
	}
}

// NewReportGeneratedEvent creates an event from a generated trend report
func NewReportGeneratedEvent(report *models.TrendReport) *CareEvent {
	return &CareEvent{
		ID:              uuid.New().String(),
		Type:            EventTypeReportGenerated,
		Timestamp:       time.Now(),
		EmotionCategory: report.DominantCategory,
		PeriodStart:     report.PeriodStart,
		PeriodEnd:       report.PeriodEnd,
		DepressionRisk:  report.DepressionRisk,
	}
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Filter by event types (empty = all)
	Types []EventType `json:"types,omitempty"`

	// Filter by minimum phishing risk level (empty = all)
	MinRiskLevel models.RiskLevel `json:"min_risk_level,omitempty"`

	// Filter by emotion categories (empty = all)
	EmotionCategories []models.CoarseCategory `json:"emotion_categories,omitempty"`

	// Include only alert events
	AlertsOnly bool `json:"alerts_only,omitempty"`
}

var riskOrder = map[models.RiskLevel]int{
	models.RiskSafe:   1,
	models.RiskLow:    2,
	models.RiskMedium: 3,
	models.RiskHigh:   4,
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *CareEvent) bool {
	if s.AlertsOnly && event.Type != EventTypeAlertRaised {
		return false
	}

	if len(s.Types) > 0 {
		found := false
		for _, t := range s.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// Risk filter only constrains message events carrying a risk level
	if s.MinRiskLevel != "" && event.Type == EventTypeMessageAnalyzed {
		if riskOrder[event.RiskLevel] < riskOrder[s.MinRiskLevel] {
			return false
		}
	}

	if len(s.EmotionCategories) > 0 && event.EmotionCategory != "" {
		found := false
		for _, c := range s.EmotionCategories {
			if c == event.EmotionCategory {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

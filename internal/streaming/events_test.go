package streaming

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"careguard/internal/domain/models"
)

func messageEvent(risk models.RiskLevel, category models.CoarseCategory) *CareEvent {
	return &CareEvent{
		ID:              uuid.New().String(),
		Type:            EventTypeMessageAnalyzed,
		Timestamp:       time.Now(),
		RiskLevel:       risk,
		EmotionCategory: category,
	}
}

func TestSubscriptionMatches_AlertsOnly(t *testing.T) {
	sub := &Subscription{AlertsOnly: true}

	if sub.Matches(messageEvent(models.RiskHigh, models.CategoryNegative)) {
		t.Fatalf("alerts-only subscription matched a message event")
	}
	alert := &CareEvent{Type: EventTypeAlertRaised}
	if !sub.Matches(alert) {
		t.Fatalf("alerts-only subscription rejected an alert event")
	}
}

func TestSubscriptionMatches_TypeFilter(t *testing.T) {
	sub := &Subscription{Types: []EventType{EventTypeReportGenerated}}

	if sub.Matches(messageEvent(models.RiskSafe, models.CategoryNeutral)) {
		t.Fatalf("type filter let a message event through")
	}
	if !sub.Matches(&CareEvent{Type: EventTypeReportGenerated}) {
		t.Fatalf("type filter rejected its own type")
	}
}

func TestSubscriptionMatches_MinRiskLevel(t *testing.T) {
	sub := &Subscription{MinRiskLevel: models.RiskMedium}

	if sub.Matches(messageEvent(models.RiskLow, models.CategoryNeutral)) {
		t.Fatalf("low-risk message passed a medium floor")
	}
	if !sub.Matches(messageEvent(models.RiskMedium, models.CategoryNeutral)) {
		t.Fatalf("medium-risk message rejected at a medium floor")
	}
	if !sub.Matches(messageEvent(models.RiskHigh, models.CategoryNeutral)) {
		t.Fatalf("high-risk message rejected at a medium floor")
	}

	// the risk floor constrains message events only
	if !sub.Matches(&CareEvent{Type: EventTypeAlertRaised}) {
		t.Fatalf("risk floor filtered out an alert event")
	}
}

func TestSubscriptionMatches_EmotionCategories(t *testing.T) {
	sub := &Subscription{EmotionCategories: []models.CoarseCategory{models.CategoryNegative}}

	if sub.Matches(messageEvent(models.RiskSafe, models.CategoryPositive)) {
		t.Fatalf("positive message passed a negative-only filter")
	}
	if !sub.Matches(messageEvent(models.RiskSafe, models.CategoryNegative)) {
		t.Fatalf("negative message rejected by a negative-only filter")
	}

	// events without an emotion category are not filtered out
	if !sub.Matches(&CareEvent{Type: EventTypeMessageAnalyzed}) {
		t.Fatalf("category filter dropped an event with no category")
	}
}

func TestSubscriptionMatches_EmptySubscriptionMatchesEverything(t *testing.T) {
	sub := &Subscription{}

	events := []*CareEvent{
		messageEvent(models.RiskUnknown, models.CategoryUnknown),
		{Type: EventTypeAlertRaised},
		{Type: EventTypeReportGenerated},
	}
	for _, event := range events {
		if !sub.Matches(event) {
			t.Fatalf("empty subscription rejected %s event", event.Type)
		}
	}
}

func TestNewMessageAnalyzedEvent_CopiesAnalysisFields(t *testing.T) {
	record := &models.EmotionRecord{
		ID:              uuid.New(),
		Timestamp:       time.Now(),
		SourceText:      "너무 슬퍼요",
		DominantEmotion: "슬픔",
		Category:        models.CategoryNegative,
		Confidence:      0.9,
		Keywords:        []string{"슬퍼"},
	}
	verdict := &models.PhishingVerdict{
		IsPhishing: true,
		RiskLevel:  models.RiskHigh,
		Score:      0.8,
	}

	event := NewMessageAnalyzedEvent(record, verdict)

	if event.Type != EventTypeMessageAnalyzed {
		t.Fatalf("Type=%q, want %q", event.Type, EventTypeMessageAnalyzed)
	}
	if event.ID == "" {
		t.Fatalf("event has no ID")
	}
	if event.DominantEmotion != "슬픔" || event.EmotionCategory != models.CategoryNegative {
		t.Fatalf("emotion fields not copied: %+v", event)
	}
	if event.Confidence != 0.9 {
		t.Fatalf("Confidence=%v, want 0.9", event.Confidence)
	}
	if !event.IsPhishing || event.RiskLevel != models.RiskHigh || event.PhishingScore != 0.8 {
		t.Fatalf("phishing fields not copied: %+v", event)
	}
	if len(event.Keywords) != 1 || event.Keywords[0] != "슬퍼" {
		t.Fatalf("Keywords=%v, want [슬퍼]", event.Keywords)
	}
}

func TestNewMessageAnalyzedEvent_NilInputs(t *testing.T) {
	event := NewMessageAnalyzedEvent(nil, nil)

	if event.Type != EventTypeMessageAnalyzed {
		t.Fatalf("Type=%q, want %q", event.Type, EventTypeMessageAnalyzed)
	}
	if event.DominantEmotion != "" || event.RiskLevel != "" {
		t.Fatalf("nil inputs populated analysis fields: %+v", event)
	}
}

func TestNewAlertRaisedEvent_CopiesAlertFields(t *testing.T) {
	alert := &models.Alert{
		ID:       uuid.New(),
		Type:     models.AlertDepression,
		Severity: models.SeverityWarning,
		Message:  "지속적인 부정적 감정이 감지되었습니다.",
		Details:  map[string]any{"window_days": 7},
	}

	event := NewAlertRaisedEvent(alert)

	if event.Type != EventTypeAlertRaised {
		t.Fatalf("Type=%q, want %q", event.Type, EventTypeAlertRaised)
	}
	if event.AlertID != alert.ID.String() {
		t.Fatalf("AlertID=%q, want %q", event.AlertID, alert.ID.String())
	}
	if event.AlertType != models.AlertDepression || event.AlertSeverity != models.SeverityWarning {
		t.Fatalf("alert fields not copied: %+v", event)
	}
	if event.Message != alert.Message {
		t.Fatalf("Message=%q, want %q", event.Message, alert.Message)
	}
	if event.Metadata["window_days"] != 7 {
		t.Fatalf("Metadata=%v, want alert details", event.Metadata)
	}
}

func TestNewReportGeneratedEvent_CopiesPeriod(t *testing.T) {
	report := &models.TrendReport{
		PeriodStart:      "2026-01-01",
		PeriodEnd:        "2026-01-07",
		DominantCategory: models.CategoryNegative,
		DepressionRisk:   true,
	}

	event := NewReportGeneratedEvent(report)

	if event.Type != EventTypeReportGenerated {
		t.Fatalf("Type=%q, want %q", event.Type, EventTypeReportGenerated)
	}
	if event.PeriodStart != "2026-01-01" || event.PeriodEnd != "2026-01-07" {
		t.Fatalf("period not copied: %+v", event)
	}
	if !event.DepressionRisk || event.EmotionCategory != models.CategoryNegative {
		t.Fatalf("report fields not copied: %+v", event)
	}
}

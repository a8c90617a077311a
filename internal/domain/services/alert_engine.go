package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"careguard/internal/config"
	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
	"careguard/internal/metrics"
	"careguard/internal/streaming"
	"careguard/pkg/logger"
)

const (
	// Window of emotion history inspected for a sudden polarity flip.
	emotionChangeWindowDays = 3

	// Sudden-change detection needs at least this many records.
	minChangeRecords = 2

	// Cooldown lookback over persisted alerts.
	alertLookbackDays = 7
)

// AlertEngine raises caregiver alerts from persisted emotion history.
// Each alert type carries its own cooldown, evaluated against the most
// recent persisted alert of that type, so repeated sweeps inside the
// cooldown never re-raise.
type AlertEngine struct {
	store  storage.LogStore
	trends *TrendAggregator
	bus    *streaming.EventBus
	config config.AlertingConfig
	logger *logger.Logger
}

// NewAlertEngine creates a new AlertEngine. bus may be nil when no event
// distribution is wired up.
func NewAlertEngine(store storage.LogStore, trends *TrendAggregator, bus *streaming.EventBus, cfg config.AlertingConfig, log *logger.Logger) *AlertEngine {
	if cfg.DepressionWindowDays <= 0 {
		cfg.DepressionWindowDays = defaultRiskWindowDays
	}
	if cfg.DepressionThreshold <= 0 {
		cfg.DepressionThreshold = defaultRiskThreshold
	}
	if cfg.DepressionCooldown <= 0 {
		cfg.DepressionCooldown = 72 * time.Hour
	}
	if cfg.EmotionChangeCooldown <= 0 {
		cfg.EmotionChangeCooldown = 24 * time.Hour
	}

	return &AlertEngine{
		store:  store,
		trends: trends,
		bus:    bus,
		config: cfg,
		logger: log.WithComponent("alert-engine"),
	}
}

// CheckAll runs every alert check once. Both checks run even when the
// first raises or fails; alerts raised before a failure are still
// returned alongside the error. A disabled engine returns no alerts.
func (e *AlertEngine) CheckAll(ctx context.Context) ([]*models.Alert, error) {
	alerts := []*models.Alert{}
	if !e.config.Enabled {
		e.logger.Debug().Msg("alerting disabled, skipping checks")
		return alerts, nil
	}
	var firstErr error

	if alert, err := e.checkDepression(ctx); err != nil {
		e.logger.Error().Err(err).Msg("depression check failed")
		firstErr = err
	} else if alert != nil {
		alerts = append(alerts, alert)
	}

	if alert, err := e.checkEmotionChange(ctx); err != nil {
		e.logger.Error().Err(err).Msg("emotion change check failed")
		if firstErr == nil {
			firstErr = err
		}
	} else if alert != nil {
		alerts = append(alerts, alert)
	}

	return alerts, firstErr
}

// checkDepression raises a depression alert when the sustained-risk
// predicate holds and the cooldown has elapsed.
func (e *AlertEngine) checkDepression(ctx context.Context) (*models.Alert, error) {
	risk, err := e.trends.DetectSustainedRisk(ctx, e.config.DepressionWindowDays, e.config.DepressionThreshold)
	if err != nil {
		return nil, err
	}
	if !risk {
		return nil, nil
	}

	last, err := e.lastAlert(ctx, models.AlertDepression)
	if err != nil {
		return nil, err
	}
	if last != nil && time.Since(last.Timestamp) < e.config.DepressionCooldown {
		e.logger.Debug().
			Time("last_alert", last.Timestamp).
			Dur("cooldown", e.config.DepressionCooldown).
			Msg("depression alert suppressed by cooldown")
		return nil, nil
	}

	alert := &models.Alert{
		ID:        uuid.New(),
		Type:      models.AlertDepression,
		Timestamp: time.Now(),
		Severity:  models.SeverityWarning,
		Message: fmt.Sprintf(
			"지난 %d일 동안 지속적인 부정적 감정이 감지되었습니다. 사용자의 상태를 확인해 주세요.",
			e.config.DepressionWindowDays,
		),
		Details: map[string]any{
			"detection_threshold": e.config.DepressionThreshold,
			"detection_period":    float64(e.config.DepressionWindowDays),
		},
	}

	if err := e.raise(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// checkEmotionChange raises an emotion_change alert when the two most
// recent records flip between positive and negative. Neutral transitions
// never trigger.
func (e *AlertEngine) checkEmotionChange(ctx context.Context) (*models.Alert, error) {
	records, err := e.trends.LoadRecords(ctx, emotionChangeWindowDays)
	if err != nil {
		return nil, err
	}
	if len(records) < minChangeRecords {
		return nil, nil
	}

	previous := records[len(records)-2]
	latest := records[len(records)-1]

	flipped := (previous.Category == models.CategoryPositive && latest.Category == models.CategoryNegative) ||
		(previous.Category == models.CategoryNegative && latest.Category == models.CategoryPositive)
	if !flipped {
		return nil, nil
	}

	last, err := e.lastAlert(ctx, models.AlertEmotionChange)
	if err != nil {
		return nil, err
	}
	if last != nil && time.Since(last.Timestamp) < e.config.EmotionChangeCooldown {
		e.logger.Debug().
			Time("last_alert", last.Timestamp).
			Dur("cooldown", e.config.EmotionChangeCooldown).
			Msg("emotion change alert suppressed by cooldown")
		return nil, nil
	}

	alert := &models.Alert{
		ID:        uuid.New(),
		Type:      models.AlertEmotionChange,
		Timestamp: time.Now(),
		Severity:  models.SeverityInfo,
		Message: fmt.Sprintf(
			"사용자의 감정 상태가 %s에서 %s로 급격히 변화했습니다.",
			previous.Category, latest.Category,
		),
		Details: map[string]any{
			"change_type":    fmt.Sprintf("%s_to_%s", previous.Category, latest.Category),
			"from_emotion":   string(previous.Category),
			"to_emotion":     string(latest.Category),
			"from_timestamp": previous.Timestamp.Format(time.RFC3339Nano),
			"to_timestamp":   latest.Timestamp.Format(time.RFC3339Nano),
		},
	}

	if err := e.raise(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// lastAlert returns the most recent persisted alert of the given type
// within the lookback window, or nil when none exists.
func (e *AlertEngine) lastAlert(ctx context.Context, alertType models.AlertType) (*models.Alert, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -alertLookbackDays)

	raw, err := e.store.ReadRange(ctx, storage.CategoryAlerts, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read alert history: %w", err)
	}

	var latest *models.Alert
	for _, data := range raw {
		var alert models.Alert
		if err := json.Unmarshal(data, &alert); err != nil {
			e.logger.Warn().Err(err).Msg("skipping malformed alert record")
			continue
		}
		if alert.Type != alertType {
			continue
		}
		if latest == nil || alert.Timestamp.After(latest.Timestamp) {
			a := alert
			latest = &a
		}
	}

	return latest, nil
}

// raise persists an alert and distributes it.
func (e *AlertEngine) raise(ctx context.Context, alert *models.Alert) error {
	if err := e.store.Append(ctx, storage.CategoryAlerts, alert.Timestamp, alert); err != nil {
		return fmt.Errorf("failed to persist %s alert: %w", alert.Type, err)
	}

	metrics.AlertsTotal.WithLabelValues(string(alert.Type)).Inc()

	e.logger.Warn().
		Str("alert_id", alert.ID.String()).
		Str("type", string(alert.Type)).
		Str("severity", string(alert.Severity)).
		Msg("alert raised")

	if e.bus != nil {
		if err := e.bus.Publish(ctx, streaming.NewAlertRaisedEvent(alert)); err != nil {
			e.logger.Warn().Err(err).Msg("failed to publish alert event")
		}
	}

	return nil
}

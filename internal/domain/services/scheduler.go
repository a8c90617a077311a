package services

import (
	"context"
	"sync"
	"time"

	"careguard/internal/config"
	"careguard/internal/streaming"
	"careguard/pkg/logger"
)

const defaultSweepInterval = time.Hour

// SweepResult holds the outcome of the most recent alert sweep.
type SweepResult struct {
	CompletedAt  time.Time     `json:"completed_at"`
	Duration     time.Duration `json:"duration"`
	AlertsRaised int           `json:"alerts_raised"`
	Error        string        `json:"error,omitempty"`
}

// SchedulerStats describes the scheduler's current state.
type SchedulerStats struct {
	Running       bool         `json:"running"`
	LastSweep     *SweepResult `json:"last_sweep,omitempty"`
	LastReportDay string       `json:"last_report_day,omitempty"`
}

// Scheduler drives the background jobs: a periodic alert sweep and one
// trend report per day at the configured hour.
type Scheduler struct {
	alerts *AlertEngine
	trends *TrendAggregator
	bus    *streaming.EventBus
	config config.SchedulerConfig
	logger *logger.Logger

	mu            sync.RWMutex
	running       bool
	stopCh        chan struct{}
	lastSweep     *SweepResult
	lastReportDay string
}

// NewScheduler creates a new Scheduler. bus may be nil.
func NewScheduler(alerts *AlertEngine, trends *TrendAggregator, bus *streaming.EventBus, cfg config.SchedulerConfig, log *logger.Logger) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &Scheduler{
		alerts: alerts,
		trends: trends,
		bus:    bus,
		config: cfg,
		logger: log.WithComponent("scheduler"),
		stopCh: make(chan struct{}),
	}
}

// Start runs the scheduler loop until the context is done or Stop is
// called. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("sweep_interval", s.config.SweepInterval).
		Int("report_hour", s.config.ReportHour).
		Msg("scheduler started")

	// One sweep right away so a restart does not defer alerting
	s.runSweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.runSweep(ctx)
			s.maybeDailyReport(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info().Msg("scheduler stopped")
}

// Stats returns the scheduler's current state.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SchedulerStats{
		Running:       s.running,
		LastSweep:     s.lastSweep,
		LastReportDay: s.lastReportDay,
	}
}

// runSweep runs one alert sweep and records the outcome.
func (s *Scheduler) runSweep(ctx context.Context) {
	start := time.Now()
	alerts, err := s.alerts.CheckAll(ctx)

	result := &SweepResult{
		CompletedAt:  time.Now(),
		Duration:     time.Since(start),
		AlertsRaised: len(alerts),
	}
	if err != nil {
		result.Error = err.Error()
		s.logger.Error().Err(err).Msg("alert sweep failed")
	}

	s.mu.Lock()
	s.lastSweep = result
	s.mu.Unlock()

	s.logger.Debug().
		Int("alerts_raised", len(alerts)).
		Dur("duration", result.Duration).
		Msg("alert sweep completed")
}

// maybeDailyReport generates and persists the daily trend report once per
// calendar day, after the configured hour. Failures are retried on the
// next tick.
func (s *Scheduler) maybeDailyReport(ctx context.Context) {
	now := time.Now()
	if now.Hour() < s.config.ReportHour {
		return
	}

	today := now.Format("2006-01-02")
	s.mu.RLock()
	done := s.lastReportDay == today
	s.mu.RUnlock()
	if done {
		return
	}

	report, err := s.trends.WeeklyReport(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled report generation failed")
		return
	}
	if err := s.trends.SaveReport(ctx, report); err != nil {
		s.logger.Error().Err(err).Msg("scheduled report persist failed")
		return
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, streaming.NewReportGeneratedEvent(report)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish report event")
		}
	}

	s.mu.Lock()
	s.lastReportDay = today
	s.mu.Unlock()

	s.logger.Info().Str("period_end", report.PeriodEnd).Msg("daily trend report generated")
}

package services

import (
	"context"
	"testing"
	"time"

	"careguard/internal/config"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	store := newTestStore(t)
	trends := NewTrendAggregator(store, testLogger())
	engine := NewAlertEngine(store, trends, nil, config.AlertingConfig{Enabled: true}, testLogger())
	cfg := config.SchedulerConfig{Enabled: true, SweepInterval: time.Hour, ReportHour: 0}
	return NewScheduler(engine, trends, nil, cfg, testLogger())
}

func waitForSweep(t *testing.T, sched *Scheduler) SweepResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if stats := sched.Stats(); stats.LastSweep != nil {
			return *stats.LastSweep
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no sweep recorded before deadline")
	return SweepResult{}
}

func TestScheduler_RunsSweepOnStart(t *testing.T) {
	sched := newTestScheduler(t)

	done := make(chan error, 1)
	go func() { done <- sched.Start(context.Background()) }()

	sweep := waitForSweep(t, sched)
	if sweep.Error != "" {
		t.Fatalf("sweep error=%q, want none", sweep.Error)
	}
	if sweep.AlertsRaised != 0 {
		t.Fatalf("AlertsRaised=%d, want 0 on empty store", sweep.AlertsRaised)
	}
	if stats := sched.Stats(); !stats.Running {
		t.Fatalf("Running=%v, want true while started", stats.Running)
	}

	// Start on a running scheduler returns without joining the loop.
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	sched.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v after Stop, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler loop did not exit after Stop")
	}
	if stats := sched.Stats(); stats.Running {
		t.Fatalf("Running=%v after Stop, want false", stats.Running)
	}

	// Stop on a stopped scheduler is a no-op.
	sched.Stop()
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	sched := newTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	waitForSweep(t, sched)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler loop did not exit after cancel")
	}
	if stats := sched.Stats(); stats.Running {
		t.Fatalf("Running=%v after cancel, want false", stats.Running)
	}
}

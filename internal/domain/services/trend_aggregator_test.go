package services

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
)

func newTestAggregator(t *testing.T) (*TrendAggregator, storage.LogStore) {
	t.Helper()
	store := newTestStore(t)
	return NewTrendAggregator(store, testLogger()), store
}

func emotionRecord(ts time.Time, category models.CoarseCategory, keywords ...string) *models.EmotionRecord {
	return &models.EmotionRecord{
		ID:        uuid.New(),
		Timestamp: ts,
		Category:  category,
		Keywords:  keywords,
	}
}

func TestDailyStats_RatiosAndDominant(t *testing.T) {
	agg, _ := newTestAggregator(t)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	stats := agg.DailyStats([]*models.EmotionRecord{
		emotionRecord(day, models.CategoryPositive),
		emotionRecord(day.Add(time.Hour), models.CategoryNegative),
		emotionRecord(day.Add(2*time.Hour), models.CategoryNegative),
	})

	if len(stats) != 1 {
		t.Fatalf("got %d days, want 1", len(stats))
	}
	s, ok := stats["2026-03-10"]
	if !ok {
		t.Fatalf("missing stats for 2026-03-10: %v", stats)
	}
	if s.SampleCount != 3 {
		t.Fatalf("SampleCount=%d, want 3", s.SampleCount)
	}
	if math.Abs(s.NegativeRatio-2.0/3.0) > 1e-9 || math.Abs(s.PositiveRatio-1.0/3.0) > 1e-9 {
		t.Fatalf("ratios=%v/%v, want 2/3 negative and 1/3 positive", s.NegativeRatio, s.PositiveRatio)
	}
	if s.DominantCategory != models.CategoryNegative {
		t.Fatalf("DominantCategory=%q, want negative", s.DominantCategory)
	}
}

func TestDailyStats_SkipsUnusableRecords(t *testing.T) {
	agg, _ := newTestAggregator(t)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	stats := agg.DailyStats([]*models.EmotionRecord{
		emotionRecord(day, models.CategoryPositive),
		emotionRecord(time.Time{}, models.CategoryNegative),
		emotionRecord(day.AddDate(0, 0, 1), models.CategoryUnknown),
	})

	// the zero timestamp is dropped; the unknown-only day yields no stats
	if len(stats) != 1 {
		t.Fatalf("got %d days, want 1: %v", len(stats), stats)
	}
	if stats["2026-03-10"].SampleCount != 1 {
		t.Fatalf("SampleCount=%d, want 1", stats["2026-03-10"].SampleCount)
	}
}

func TestDetectSustainedRisk_SevenNegativeDays(t *testing.T) {
	agg, store := newTestAggregator(t)
	now := time.Now()

	for i := 0; i < 7; i++ {
		seedEmotion(t, store, now.AddDate(0, 0, -i), models.CategoryNegative)
	}

	risk, err := agg.DetectSustainedRisk(context.Background(), 7, 0.6)
	if err != nil {
		t.Fatalf("DetectSustainedRisk: %v", err)
	}
	if !risk {
		t.Fatalf("risk=false, want true for seven negative days")
	}
}

func TestDetectSustainedRisk_InsufficientHistory(t *testing.T) {
	agg, store := newTestAggregator(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		seedEmotion(t, store, now.AddDate(0, 0, -i), models.CategoryNegative)
	}

	risk, err := agg.DetectSustainedRisk(context.Background(), 7, 0.6)
	if err != nil {
		t.Fatalf("DetectSustainedRisk: %v", err)
	}
	if risk {
		t.Fatalf("risk=true, want false with only five days of history")
	}
}

func TestDetectSustainedRisk_ShareOfQualifyingDays(t *testing.T) {
	now := time.Now()

	// four qualifying days out of seven stay under the 70% share
	agg, store := newTestAggregator(t)
	for i := 0; i < 7; i++ {
		category := models.CategoryNegative
		if i >= 4 {
			category = models.CategoryPositive
		}
		seedEmotion(t, store, now.AddDate(0, 0, -i), category)
	}
	risk, err := agg.DetectSustainedRisk(context.Background(), 7, 0.6)
	if err != nil {
		t.Fatalf("DetectSustainedRisk: %v", err)
	}
	if risk {
		t.Fatalf("risk=true with 4/7 qualifying days, want false")
	}

	// five qualifying days cross it
	agg, store = newTestAggregator(t)
	for i := 0; i < 7; i++ {
		category := models.CategoryNegative
		if i >= 5 {
			category = models.CategoryPositive
		}
		seedEmotion(t, store, now.AddDate(0, 0, -i), category)
	}
	risk, err = agg.DetectSustainedRisk(context.Background(), 7, 0.6)
	if err != nil {
		t.Fatalf("DetectSustainedRisk: %v", err)
	}
	if !risk {
		t.Fatalf("risk=false with 5/7 qualifying days, want true")
	}
}

func TestWeeklyReport_StableAcrossRuns(t *testing.T) {
	agg, store := newTestAggregator(t)
	now := time.Now()

	seedEmotion(t, store, now.AddDate(0, 0, -2), models.CategoryNegative, "외로워")
	seedEmotion(t, store, now.AddDate(0, 0, -1), models.CategoryPositive, "행복")
	seedEmotion(t, store, now, models.CategoryNegative, "외로워", "슬퍼")

	first, err := agg.WeeklyReport(context.Background())
	if err != nil {
		t.Fatalf("first WeeklyReport: %v", err)
	}
	second, err := agg.WeeklyReport(context.Background())
	if err != nil {
		t.Fatalf("second WeeklyReport: %v", err)
	}

	second.GeneratedAt = first.GeneratedAt
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ beyond GeneratedAt:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestWeeklyReport_KeywordRanking(t *testing.T) {
	agg, store := newTestAggregator(t)
	now := time.Now()

	seedEmotion(t, store, now.Add(-4*time.Hour), models.CategoryNegative, "외로워", "슬퍼")
	seedEmotion(t, store, now.Add(-3*time.Hour), models.CategoryNegative, "외로워")
	seedEmotion(t, store, now.Add(-2*time.Hour), models.CategoryNegative, "슬퍼")
	seedEmotion(t, store, now.Add(-time.Hour), models.CategoryNegative, "눈물")

	report, err := agg.WeeklyReport(context.Background())
	if err != nil {
		t.Fatalf("WeeklyReport: %v", err)
	}

	want := []models.KeywordCount{
		{Keyword: "외로워", Count: 2},
		{Keyword: "슬퍼", Count: 2},
		{Keyword: "눈물", Count: 1},
	}
	if !reflect.DeepEqual(report.TopKeywords, want) {
		t.Fatalf("TopKeywords=%v, want %v (ties keep first-seen order)", report.TopKeywords, want)
	}
	if report.DominantCategory != models.CategoryNegative {
		t.Fatalf("DominantCategory=%q, want negative", report.DominantCategory)
	}
}

func TestSaveReport_PersistsUnderPeriodEnd(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedEmotion(t, store, time.Now(), models.CategoryPositive, "행복")

	report, err := agg.WeeklyReport(context.Background())
	if err != nil {
		t.Fatalf("WeeklyReport: %v", err)
	}
	if err := agg.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	endDay, err := time.Parse(storage.DayFormat, report.PeriodEnd)
	if err != nil {
		t.Fatalf("parse period end: %v", err)
	}
	raw, err := store.ReadDay(context.Background(), storage.CategoryReports, endDay)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("got %d persisted reports, want 1", len(raw))
	}

	var persisted models.TrendReport
	if err := json.Unmarshal(raw[0], &persisted); err != nil {
		t.Fatalf("unmarshal persisted report: %v", err)
	}
	if persisted.PeriodEnd != report.PeriodEnd {
		t.Fatalf("PeriodEnd=%q, want %q", persisted.PeriodEnd, report.PeriodEnd)
	}
}

func TestSaveReport_RejectsBadPeriodEnd(t *testing.T) {
	agg, _ := newTestAggregator(t)

	err := agg.SaveReport(context.Background(), &models.TrendReport{PeriodEnd: "not-a-date"})
	if err == nil {
		t.Fatalf("expected error for unparseable period end")
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

const (
	// Trailing window the weekly report covers.
	reportWindowDays = 7

	// Defaults for the sustained-risk verdict a report embeds.
	defaultRiskWindowDays = 7
	defaultRiskThreshold  = 0.6

	// Share of window days that must qualify before risk is declared.
	sustainedRiskShare = 0.7

	// Reports rank at most this many keywords.
	reportTopKeywords = 10
)

// TrendAggregator derives multi-day emotion statistics from the persisted
// emotion records. All computations are pure functions over the store and
// can be retried in full.
type TrendAggregator struct {
	store  storage.LogStore
	logger *logger.Logger
}

// NewTrendAggregator creates a new TrendAggregator.
func NewTrendAggregator(store storage.LogStore, log *logger.Logger) *TrendAggregator {
	return &TrendAggregator{
		store:  store,
		logger: log.WithComponent("trend-aggregator"),
	}
}

// LoadRecords returns the emotion records of the trailing window, oldest
// first. Records that fail to decode are skipped with a logged anomaly.
func (t *TrendAggregator) LoadRecords(ctx context.Context, days int) ([]*models.EmotionRecord, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	raw, err := t.store.ReadRange(ctx, storage.CategoryEmotions, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read emotion records: %w", err)
	}

	records := make([]*models.EmotionRecord, 0, len(raw))
	for _, data := range raw {
		var record models.EmotionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			t.logger.Warn().Err(err).Msg("skipping malformed emotion record")
			continue
		}
		records = append(records, &record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// DailyStats buckets records by calendar date and computes per-day coarse
// category ratios. Records with no timestamp or an unmapped category are
// skipped; dates ending up with zero samples are excluded entirely.
func (t *TrendAggregator) DailyStats(records []*models.EmotionRecord) map[string]models.DailyEmotionStats {
	type dayCounts struct {
		positive, negative, neutral int
		total                       int
	}

	counts := make(map[string]*dayCounts)
	for _, record := range records {
		if record.Timestamp.IsZero() {
			t.logger.Warn().Str("id", record.ID.String()).Msg("skipping emotion record without timestamp")
			continue
		}

		day := record.Timestamp.Format(storage.DayFormat)
		c := counts[day]
		if c == nil {
			c = &dayCounts{}
			counts[day] = c
		}

		switch record.Category {
		case models.CategoryPositive:
			c.positive++
		case models.CategoryNegative:
			c.negative++
		case models.CategoryNeutral:
			c.neutral++
		default:
			continue
		}
		c.total++
	}

	stats := make(map[string]models.DailyEmotionStats, len(counts))
	for day, c := range counts {
		if c.total == 0 {
			continue
		}

		dominant := models.CategoryPositive
		best := c.positive
		if c.negative > best {
			dominant, best = models.CategoryNegative, c.negative
		}
		if c.neutral > best {
			dominant = models.CategoryNeutral
		}

		total := float64(c.total)
		stats[day] = models.DailyEmotionStats{
			Date:             day,
			PositiveRatio:    float64(c.positive) / total,
			NegativeRatio:    float64(c.negative) / total,
			NeutralRatio:     float64(c.neutral) / total,
			DominantCategory: dominant,
			SampleCount:      c.total,
		}
	}

	return stats
}

// DailyStatsWindow loads the trailing window and computes its daily stats.
func (t *TrendAggregator) DailyStatsWindow(ctx context.Context, days int) (map[string]models.DailyEmotionStats, error) {
	records, err := t.LoadRecords(ctx, days)
	if err != nil {
		return nil, err
	}
	return t.DailyStats(records), nil
}

// DetectSustainedRisk reports whether negative emotion persisted across
// most of the trailing window. Insufficient history is never risk.
func (t *TrendAggregator) DetectSustainedRisk(ctx context.Context, windowDays int, threshold float64) (bool, error) {
	stats, err := t.DailyStatsWindow(ctx, windowDays)
	if err != nil {
		return false, err
	}

	dates := make([]string, 0, len(stats))
	for date := range stats {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > windowDays {
		dates = dates[len(dates)-windowDays:]
	}
	if len(dates) < windowDays {
		return false, nil
	}

	qualifying := 0
	for _, date := range dates {
		if stats[date].NegativeRatio >= threshold {
			qualifying++
		}
	}

	risk := float64(qualifying) >= float64(windowDays)*sustainedRiskShare
	if risk {
		t.logger.Warn().
			Int("qualifying_days", qualifying).
			Int("window_days", windowDays).
			Float64("threshold", threshold).
			Msg("sustained negative emotion detected")
	}

	return risk, nil
}

// WeeklyReport builds the trailing 7-day trend report. Regenerating over
// an unchanged record set yields an identical report except GeneratedAt.
func (t *TrendAggregator) WeeklyReport(ctx context.Context) (*models.TrendReport, error) {
	records, err := t.LoadRecords(ctx, reportWindowDays)
	if err != nil {
		return nil, err
	}

	stats := t.DailyStats(records)

	// Keyword frequency across every loaded record; ties keep first-seen order
	counts := make(map[string]int)
	var order []string
	for _, record := range records {
		for _, kw := range record.Keywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}
	ranked := make([]models.KeywordCount, 0, len(order))
	for _, kw := range order {
		ranked = append(ranked, models.KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > reportTopKeywords {
		ranked = ranked[:reportTopKeywords]
	}

	// Overall ratios are the unweighted mean of the daily ratios
	var overall models.Ratios
	if len(stats) > 0 {
		for _, day := range stats {
			overall.Positive += day.PositiveRatio
			overall.Negative += day.NegativeRatio
			overall.Neutral += day.NeutralRatio
		}
		n := float64(len(stats))
		overall.Positive /= n
		overall.Negative /= n
		overall.Neutral /= n
	}

	dominant := models.CategoryPositive
	best := overall.Positive
	if overall.Negative > best {
		dominant, best = models.CategoryNegative, overall.Negative
	}
	if overall.Neutral > best {
		dominant = models.CategoryNeutral
	}

	risk, err := t.DetectSustainedRisk(ctx, defaultRiskWindowDays, defaultRiskThreshold)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.TrendReport{
		PeriodStart:      now.AddDate(0, 0, -reportWindowDays).Format(storage.DayFormat),
		PeriodEnd:        now.Format(storage.DayFormat),
		GeneratedAt:      now,
		OverallRatios:    overall,
		DominantCategory: dominant,
		DailyStats:       stats,
		TopKeywords:      ranked,
		DepressionRisk:   risk,
	}, nil
}

// SaveReport persists a generated report under its period end date.
func (t *TrendAggregator) SaveReport(ctx context.Context, report *models.TrendReport) error {
	endDay, err := time.Parse(storage.DayFormat, report.PeriodEnd)
	if err != nil {
		return fmt.Errorf("invalid report period end %q: %w", report.PeriodEnd, err)
	}

	if err := t.store.Append(ctx, storage.CategoryReports, endDay, report); err != nil {
		return fmt.Errorf("failed to persist trend report: %w", err)
	}

	t.logger.Info().
		Str("period_start", report.PeriodStart).
		Str("period_end", report.PeriodEnd).
		Bool("depression_risk", report.DepressionRisk).
		Msg("trend report persisted")

	return nil
}

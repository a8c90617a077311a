package models

import (
	"time"

	"github.com/google/uuid"
)

// CoarseCategory buckets fine-grained emotions into three polarity groups.
type CoarseCategory string

const (
	CategoryPositive CoarseCategory = "positive"
	CategoryNegative CoarseCategory = "negative"
	CategoryNeutral  CoarseCategory = "neutral"
	CategoryUnknown  CoarseCategory = "unknown"
)

// TrendDirection describes the estimated direction of an emotion series.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
)

// EmotionRecord is the scored emotional content of a single utterance.
// Created once per analyzed utterance, immutable after creation, and
// appended to the day-partitioned emotions log.
type EmotionRecord struct {
	ID              uuid.UUID          `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	SourceText      string             `json:"text"`
	DominantEmotion string             `json:"dominant_emotion"`
	Category        CoarseCategory     `json:"emotion_category"`
	EmotionScores   map[string]float64 `json:"emotion_scores"`
	Confidence      float64            `json:"confidence"`
	Keywords        []string           `json:"keywords"`
}

// DailyEmotionStats aggregates the emotion records of one calendar date.
// Recomputed on demand, never persisted outside a report.
type DailyEmotionStats struct {
	Date             string         `json:"date"`
	PositiveRatio    float64        `json:"positive_ratio"`
	NegativeRatio    float64        `json:"negative_ratio"`
	NeutralRatio     float64        `json:"neutral_ratio"`
	DominantCategory CoarseCategory `json:"dominant_category"`
	SampleCount      int            `json:"sample_count"`
}

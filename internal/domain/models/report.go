package models

import "time"

// Ratios is a coarse-category weight distribution.
type Ratios struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// KeywordCount is one entry of a ranked keyword frequency list.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// TrendReport is the weekly emotion summary. Generated on demand and
// persisted once as an immutable snapshot named by its end date.
// Regenerating against an unchanged record set yields an identical report
// except for GeneratedAt, so the report deliberately carries no random ID.
type TrendReport struct {
	PeriodStart      string                       `json:"period_start"`
	PeriodEnd        string                       `json:"period_end"`
	GeneratedAt      time.Time                    `json:"generated_at"`
	OverallRatios    Ratios                       `json:"overall_ratios"`
	DominantCategory CoarseCategory               `json:"dominant_category"`
	DailyStats       map[string]DailyEmotionStats `json:"daily_stats"`
	TopKeywords      []KeywordCount               `json:"top_keywords"`
	DepressionRisk   bool                         `json:"depression_risk"`
}

// ConversationReport summarizes conversation activity over a date range.
type ConversationReport struct {
	PeriodStart         string         `json:"period_start"`
	PeriodEnd           string         `json:"period_end"`
	GeneratedAt         time.Time      `json:"generated_at"`
	TotalConversations  int            `json:"total_conversations"`
	DailyCounts         map[string]int `json:"daily_conversation_counts"`
	TopKeywords         []KeywordCount `json:"top_keywords"`
	EmotionDistribution map[string]int `json:"emotion_distribution"`
}

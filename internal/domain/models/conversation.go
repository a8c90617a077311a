package models

import "time"

// ConversationAnalysis is the emotion summary of a whole transcript.
type ConversationAnalysis struct {
	OverallEmotion CoarseCategory             `json:"overall_emotion"`
	Trend          TrendDirection             `json:"emotion_trend"`
	Distribution   map[CoarseCategory]float64 `json:"emotion_distribution"`
	Messages       []*EmotionRecord           `json:"emotion_scores_by_message"`
}

// ConversationLogEntry is one persisted assistant turn. Keywords carries
// the emotion keywords matched in the user input so activity reports can
// rank them without re-analyzing the text.
type ConversationLogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	UserInput  string         `json:"user_input"`
	AIResponse string         `json:"ai_response"`
	Keywords   []string       `json:"keywords,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AssistantTurn is the full outcome of processing one user message.
type AssistantTurn struct {
	Reply    string           `json:"reply"`
	Warning  bool             `json:"warning"`
	Emotion  *EmotionRecord   `json:"emotion,omitempty"`
	Phishing *PhishingVerdict `json:"phishing,omitempty"`
	Alerts   []*Alert         `json:"alerts,omitempty"`
}

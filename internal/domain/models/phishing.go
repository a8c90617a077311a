package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel grades how strongly an utterance resembles a phishing attempt.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// DetectionMethod records which detector(s) produced a verdict.
type DetectionMethod string

const (
	MethodPattern  DetectionMethod = "pattern"
	MethodLLM      DetectionMethod = "llm"
	MethodCombined DetectionMethod = "combined"
)

// PhishingVerdict is the final phishing assessment of a single utterance.
// Created once per utterance, immutable.
type PhishingVerdict struct {
	ID          uuid.UUID       `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	SourceText  string          `json:"text"`
	IsPhishing  bool            `json:"is_phishing"`
	RiskLevel   RiskLevel       `json:"risk_level"`
	Score       float64         `json:"score"`
	Keywords    []string        `json:"keywords"`
	Explanation string          `json:"explanation"`
	Method      DetectionMethod `json:"method"`
}

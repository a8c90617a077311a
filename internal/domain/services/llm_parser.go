package services

import (
	"regexp"
	"strconv"
	"strings"

	"careguard/internal/domain/models"
)

// ExplanationUnparsed is the sentinel explanation a ClassifierResult keeps
// when no explanation could be extracted. Fusion falls back to the pattern
// explanation whenever it sees this value.
const ExplanationUnparsed = "분석 결과를 해석할 수 없습니다."

// ClassifierResult is the structured partial result parsed from a
// classifier's free-form Korean response. Fields the parser could not
// extract keep their zero-value defaults: score 0, risk level unknown,
// no keywords, and the ExplanationUnparsed sentinel.
type ClassifierResult struct {
	Score       float64
	RiskLevel   models.RiskLevel
	Keywords    []string
	Explanation string
}

// Extraction patterns for the labeled sections the classifier is prompted
// to produce. Responses are free text, so every field is best-effort.
var (
	probabilityPattern = regexp.MustCompile(`확률[:\s]*([0-9.]+)`)
	riskLevelPattern   = regexp.MustCompile(`위험[^:]*[:\s]*(안전|주의|경고|위험)`)
	keywordsPattern    = regexp.MustCompile(`키워드[^:]*[:\s]*(.*?)(?:\n|$)`)
	explanationPattern = regexp.MustCompile(`(?s)설명[^:]*[:\s]*(.*?)(?:\n|대응|$)`)
)

var riskLevelNames = map[string]models.RiskLevel{
	"안전": models.RiskSafe,
	"주의": models.RiskLow,
	"경고": models.RiskMedium,
	"위험": models.RiskHigh,
}

// ParseClassifierResponse extracts the probability, risk level, keywords
// and explanation from a classifier response. It never fails; fields that
// cannot be parsed keep their defaults.
func ParseClassifierResponse(response string) *ClassifierResult {
	result := &ClassifierResult{
		Score:       0,
		RiskLevel:   models.RiskUnknown,
		Keywords:    []string{},
		Explanation: ExplanationUnparsed,
	}

	if m := probabilityPattern.FindStringSubmatch(response); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			result.Score = v
		}
	}

	if m := riskLevelPattern.FindStringSubmatch(response); m != nil {
		result.RiskLevel = riskLevelNames[m[1]]
	}

	if m := keywordsPattern.FindStringSubmatch(response); m != nil {
		for _, kw := range strings.Split(m[1], ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				result.Keywords = append(result.Keywords, kw)
			}
		}
	}

	if m := explanationPattern.FindStringSubmatch(response); m != nil {
		if explanation := strings.TrimSpace(m[1]); explanation != "" {
			result.Explanation = explanation
		}
	}

	return result
}

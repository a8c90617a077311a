package services

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"careguard/internal/domain/models"
	"careguard/internal/metrics"
	"careguard/pkg/logger"
)

const (
	// Tier weights per distinct matched keyword.
	highRiskWeight   = 0.5
	mediumRiskWeight = 0.3
	lowRiskWeight    = 0.1

	// Fixed thresholds for the pattern-only risk level.
	patternHighThreshold   = 0.7
	patternMediumThreshold = 0.4

	// Below this pattern score the secondary classifier is skipped.
	classifierSkipThreshold = 0.2

	// Default combined threshold when none is configured.
	defaultPhishingThreshold = 0.7

	// Minimum input lengths, in runes.
	minPatternRunes    = 5
	minClassifierRunes = 10
)

// Korean verdict explanations for the pattern stage.
const (
	explanationHigh     = "다수의 고위험 보이스피싱 징후가 감지되었습니다. 주의하세요!"
	explanationMedium   = "일부 보이스피싱 관련 용어가 감지되었습니다. 의심스러운 부분이 있습니다."
	explanationLow      = "약간의 의심스러운 표현이 포함되어 있습니다. 주의가 필요할 수 있습니다."
	explanationSafe     = "보이스피싱 징후가 감지되지 않았습니다."
	explanationTooShort = "텍스트가 너무 짧습니다."
)

// Classifier is the secondary free-text classifier collaborator. The
// response carries no structural contract; it is parsed best-effort.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// PhishingScorer grades utterances for voice-phishing signals. The fast
// keyword tier scorer always runs; a secondary classifier refines the
// verdict for texts the pattern stage finds suspicious enough.
type PhishingScorer struct {
	lexicon    *models.PhishingLexicon
	classifier Classifier
	threshold  float64
	logger     *logger.Logger
}

// NewPhishingScorer creates a new PhishingScorer. classifier may be nil,
// in which case every verdict degrades to the pattern result.
func NewPhishingScorer(lexicon *models.PhishingLexicon, classifier Classifier, threshold float64, log *logger.Logger) *PhishingScorer {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultPhishingThreshold
	}
	return &PhishingScorer{
		lexicon:    lexicon,
		classifier: classifier,
		threshold:  threshold,
		logger:     log.WithComponent("phishing-scorer"),
	}
}

// Detect runs the full two-stage detection over one utterance.
func (s *PhishingScorer) Detect(ctx context.Context, text string) *models.PhishingVerdict {
	pattern := s.DetectWithPatterns(text)

	// Cheap texts stay pattern-only
	if pattern.Score < classifierSkipThreshold {
		metrics.PhishingScore.Observe(pattern.Score)
		return pattern
	}

	parsed := s.classify(ctx, text)
	if parsed == nil {
		// Classifier unavailable or failed: reuse the pattern verdict as
		// the second opinion so fusion still applies
		parsed = &ClassifierResult{
			Score:       pattern.Score,
			RiskLevel:   pattern.RiskLevel,
			Keywords:    pattern.Keywords,
			Explanation: pattern.Explanation,
		}
	}

	verdict := s.fuse(text, pattern, parsed)
	metrics.PhishingScore.Observe(verdict.Score)
	return verdict
}

// DetectWithPatterns runs only the keyword tier stage.
func (s *PhishingScorer) DetectWithPatterns(text string) *models.PhishingVerdict {
	verdict := &models.PhishingVerdict{
		ID:         uuid.New(),
		Timestamp:  time.Now(),
		SourceText: text,
		Keywords:   []string{},
		Method:     models.MethodPattern,
	}

	if utf8.RuneCountInString(text) < minPatternRunes {
		verdict.RiskLevel = models.RiskUnknown
		verdict.Explanation = explanationTooShort
		return verdict
	}

	normalized := strings.ToLower(text)

	tiers := []struct {
		keywords []string
		weight   float64
	}{
		{s.lexicon.HighRisk, highRiskWeight},
		{s.lexicon.MediumRisk, mediumRiskWeight},
		{s.lexicon.LowRisk, lowRiskWeight},
	}

	var score float64
	for _, tier := range tiers {
		for _, keyword := range distinctMatches(normalized, tier.keywords) {
			score += tier.weight
			verdict.Keywords = append(verdict.Keywords, keyword)
		}
	}
	verdict.Score = math.Min(score, 1.0)

	switch {
	case verdict.Score >= patternHighThreshold:
		verdict.RiskLevel = models.RiskHigh
		verdict.Explanation = explanationHigh
	case verdict.Score >= patternMediumThreshold:
		verdict.RiskLevel = models.RiskMedium
		verdict.Explanation = explanationMedium
	case verdict.Score > 0:
		verdict.RiskLevel = models.RiskLow
		verdict.Explanation = explanationLow
	default:
		verdict.RiskLevel = models.RiskSafe
		verdict.Explanation = explanationSafe
	}
	verdict.IsPhishing = verdict.RiskLevel == models.RiskMedium || verdict.RiskLevel == models.RiskHigh

	return verdict
}

// classify invokes the secondary classifier and parses its response.
// Returns nil when no usable second opinion exists.
func (s *PhishingScorer) classify(ctx context.Context, text string) *ClassifierResult {
	if utf8.RuneCountInString(text) < minClassifierRunes {
		return &ClassifierResult{
			RiskLevel:   models.RiskUnknown,
			Keywords:    []string{},
			Explanation: explanationTooShort,
		}
	}
	if s.classifier == nil {
		return nil
	}

	response, err := s.classifier.Classify(ctx, text)
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Msg("classifier call failed, falling back to pattern verdict")
		return nil
	}
	metrics.ClassifierCalls.WithLabelValues("ok").Inc()

	return ParseClassifierResponse(response)
}

// fuse merges the pattern and classifier results. Most alarmed wins: the
// combined score is the max of both, graded against the configured
// threshold rather than the fixed pattern thresholds.
func (s *PhishingScorer) fuse(text string, pattern *models.PhishingVerdict, parsed *ClassifierResult) *models.PhishingVerdict {
	verdict := &models.PhishingVerdict{
		ID:         uuid.New(),
		Timestamp:  time.Now(),
		SourceText: text,
		Score:      math.Max(pattern.Score, parsed.Score),
		Keywords:   mergeKeywords(pattern.Keywords, parsed.Keywords),
		Method:     models.MethodCombined,
	}

	switch {
	case verdict.Score >= s.threshold:
		verdict.RiskLevel = models.RiskHigh
		verdict.IsPhishing = true
	case verdict.Score >= 0.7*s.threshold:
		verdict.RiskLevel = models.RiskMedium
		verdict.IsPhishing = true
	case verdict.Score >= 0.3*s.threshold:
		verdict.RiskLevel = models.RiskLow
	default:
		verdict.RiskLevel = models.RiskSafe
	}

	verdict.Explanation = parsed.Explanation
	if verdict.Explanation == "" || verdict.Explanation == ExplanationUnparsed {
		verdict.Explanation = pattern.Explanation
	}

	return verdict
}

// distinctMatches returns the tier keywords found in text, case-insensitive
// by substring, each at most once, in lexicon order.
func distinctMatches(normalized string, keywords []string) []string {
	var found []string
	for _, keyword := range keywords {
		if keyword == "" || containsString(found, keyword) {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			found = append(found, keyword)
		}
	}
	return found
}

// mergeKeywords unions two keyword lists preserving first-seen order.
func mergeKeywords(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, kw := range list {
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			merged = append(merged, kw)
		}
	}
	return merged
}

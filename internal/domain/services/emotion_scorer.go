package services

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"careguard/internal/domain/models"
	"careguard/pkg/logger"
)

const (
	// Intensity and negation multipliers applied per keyword match.
	highIntensityFactor = 1.5
	lowIntensityFactor  = 0.7
	negationFactor      = -0.5

	// Modifier lookup window, in runes on each side of a match.
	intensityWindow = 20

	// A record keeps at most this many matched keywords.
	maxRecordKeywords = 5

	// Inputs shorter than this cannot be scored meaningfully.
	minScorableRunes = 3

	// Slope cutoffs for the conversation trend estimate.
	trendSlopeThreshold = 0.1
)

// EmotionScorer scores the emotional content of Korean utterances
// against a keyword lexicon.
type EmotionScorer struct {
	lexicon *models.EmotionLexicon
	logger  *logger.Logger
}

// NewEmotionScorer creates a new EmotionScorer.
func NewEmotionScorer(lexicon *models.EmotionLexicon, log *logger.Logger) *EmotionScorer {
	return &EmotionScorer{
		lexicon: lexicon,
		logger:  log.WithComponent("emotion-scorer"),
	}
}

// Analyze scores a single utterance. It never fails: inputs too short to
// score yield an unknown record with zero confidence.
func (s *EmotionScorer) Analyze(text string) *models.EmotionRecord {
	record := &models.EmotionRecord{
		ID:            uuid.New(),
		Timestamp:     time.Now(),
		SourceText:    text,
		EmotionScores: map[string]float64{},
		Keywords:      []string{},
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < minScorableRunes {
		record.DominantEmotion = "unknown"
		record.Category = models.CategoryUnknown
		return record
	}

	lowered := []rune(strings.ToLower(text))
	emotions := s.lexicon.Categories()

	// 1. Raw scores: one point per whole-word match, scaled by nearby
	// intensity and negation modifiers.
	raw := make(map[string]float64, len(emotions))
	for _, emotion := range emotions {
		raw[emotion] = 0
		for _, keyword := range s.lexicon.Emotions[emotion] {
			matches := findKeywordMatches(lowered, []rune(strings.ToLower(keyword)))
			if len(matches) == 0 {
				continue
			}
			if len(record.Keywords) < maxRecordKeywords && !containsString(record.Keywords, keyword) {
				record.Keywords = append(record.Keywords, keyword)
			}
			for _, m := range matches {
				raw[emotion] += s.scoreMatch(lowered, m)
			}
		}
	}

	// 2. Normalize by total magnitude so scores sum to 1.
	var total float64
	for _, v := range raw {
		total += math.Abs(v)
	}

	if total == 0 {
		for emotion := range raw {
			record.EmotionScores[emotion] = 0
		}
		record.DominantEmotion = "neutral"
		record.Category = models.CategoryNeutral
		return record
	}

	for emotion, v := range raw {
		record.EmotionScores[emotion] = math.Abs(v) / total
	}

	// 3. Dominant emotion, ties broken by lexicon order.
	dominant := ""
	var top float64
	for _, emotion := range emotions {
		if record.EmotionScores[emotion] > top {
			top = record.EmotionScores[emotion]
			dominant = emotion
		}
	}
	record.DominantEmotion = dominant
	record.Category = models.CoarseCategoryOf(dominant)

	// 4. Confidence: the dominant share, or the margin over the runner-up
	// when one exists. A tied top score means no confidence at all.
	values := make([]float64, 0, len(record.EmotionScores))
	for _, v := range record.EmotionScores {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	confidence := values[0]
	if len(values) > 1 && values[1] > 0 {
		confidence = (values[0] - values[1]) / values[0]
	}
	record.Confidence = math.Min(confidence, 1.0)

	return record
}

// scoreMatch computes the contribution of one keyword match, scanning a
// window of surrounding runes for intensity and negation modifiers. Only
// the first modifier of each kind applies.
func (s *EmotionScorer) scoreMatch(text []rune, m keywordMatch) float64 {
	start := m.start - intensityWindow
	if start < 0 {
		start = 0
	}
	end := m.end + intensityWindow
	if end > len(text) {
		end = len(text)
	}
	window := string(text[start:end])

	score := 1.0
	for _, mod := range s.lexicon.IntensityModifiers.High {
		if strings.Contains(window, mod) {
			score *= highIntensityFactor
			break
		}
	}
	for _, mod := range s.lexicon.IntensityModifiers.Low {
		if strings.Contains(window, mod) {
			score *= lowIntensityFactor
			break
		}
	}
	for _, neg := range s.lexicon.NegationWords {
		if strings.Contains(window, neg) {
			score *= negationFactor
			break
		}
	}
	return score
}

// AnalyzeConversation scores a whole transcript. Messages alternate
// user/assistant starting with the user; only user turns are scored.
func (s *EmotionScorer) AnalyzeConversation(messages []string) *models.ConversationAnalysis {
	var userMessages []string
	for i := 0; i < len(messages); i += 2 {
		userMessages = append(userMessages, messages[i])
	}

	if len(userMessages) == 0 {
		return &models.ConversationAnalysis{
			OverallEmotion: models.CategoryNeutral,
			Trend:          models.TrendStable,
			Distribution:   map[models.CoarseCategory]float64{models.CategoryNeutral: 1.0},
			Messages:       []*models.EmotionRecord{},
		}
	}

	records := make([]*models.EmotionRecord, 0, len(userMessages))
	for _, msg := range userMessages {
		records = append(records, s.Analyze(msg))
	}

	counts := make(map[models.CoarseCategory]int)
	for _, r := range records {
		counts[r.Category]++
	}

	total := float64(len(records))
	distribution := make(map[models.CoarseCategory]float64, len(counts))
	for category, n := range counts {
		distribution[category] = float64(n) / total
	}

	overall := models.CategoryNeutral
	var best float64
	for _, category := range []models.CoarseCategory{
		models.CategoryPositive,
		models.CategoryNegative,
		models.CategoryNeutral,
		models.CategoryUnknown,
	} {
		if distribution[category] > best {
			best = distribution[category]
			overall = category
		}
	}

	return &models.ConversationAnalysis{
		OverallEmotion: overall,
		Trend:          s.estimateTrend(records),
		Distribution:   distribution,
		Messages:       records,
	}
}

// estimateTrend fits a least-squares line through the polarity series of
// the scored messages. Fewer than three points is always stable.
func (s *EmotionScorer) estimateTrend(records []*models.EmotionRecord) models.TrendDirection {
	if len(records) <= 2 {
		return models.TrendStable
	}

	values := make([]float64, len(records))
	for i, r := range records {
		switch r.Category {
		case models.CategoryPositive:
			values[i] = 1
		case models.CategoryNegative:
			values[i] = -1
		}
	}

	slope := linearSlope(values)
	switch {
	case slope > trendSlopeThreshold:
		return models.TrendImproving
	case slope < -trendSlopeThreshold:
		return models.TrendWorsening
	default:
		return models.TrendStable
	}
}

// linearSlope returns the least-squares slope of y over x = 0..n-1.
func linearSlope(y []float64) float64 {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// keywordMatch is one whole-word keyword occurrence in a rune slice.
// end extends past the keyword over any trailing word runes, so the
// match covers the full inflected form.
type keywordMatch struct {
	start, end int
}

// findKeywordMatches locates non-overlapping whole-word occurrences of
// keyword in text. A match must start at a word boundary; Korean verb and
// adjective stems then extend over their endings, so the lexicon can hold
// stems like "슬퍼" and still match "슬퍼요".
func findKeywordMatches(text, keyword []rune) []keywordMatch {
	if len(keyword) == 0 || len(keyword) > len(text) {
		return nil
	}

	var matches []keywordMatch
	i := 0
	for i+len(keyword) <= len(text) {
		if !runesEqual(text[i:i+len(keyword)], keyword) {
			i++
			continue
		}
		if i > 0 && isWordRune(text[i-1]) {
			i++
			continue
		}

		end := i + len(keyword)
		for end < len(text) && isWordRune(text[end]) {
			end++
		}
		matches = append(matches, keywordMatch{start: i, end: end})
		i = end
	}
	return matches
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

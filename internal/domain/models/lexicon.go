package models

import "sort"

// EmotionLexicon holds the keyword tables used for emotion scoring.
// Constructed once at startup and shared read-only by the scorers.
type EmotionLexicon struct {
	Emotions           map[string][]string `json:"emotions"`
	IntensityModifiers IntensityModifiers  `json:"intensity_modifiers"`
	NegationWords      []string            `json:"negation_words"`
}

// IntensityModifiers lists context words that scale a keyword match.
type IntensityModifiers struct {
	High []string `json:"high"`
	Low  []string `json:"low"`
}

// PhishingLexicon holds the risk-tier keyword tables used for phishing scoring.
type PhishingLexicon struct {
	HighRisk   []string `json:"high_risk"`
	MediumRisk []string `json:"medium_risk"`
	LowRisk    []string `json:"low_risk"`
}

// DefaultEmotionLexicon returns the built-in Korean emotion lexicon used
// when no lexicon file is configured.
func DefaultEmotionLexicon() *EmotionLexicon {
	return &EmotionLexicon{
		Emotions: map[string][]string{
			"기쁨": {"좋아", "기쁘", "행복", "웃", "신나", "즐겁", "재밌"},
			"슬픔": {"슬퍼", "우울", "눈물", "울", "속상", "마음이 아프", "고통스럽"},
			"분노": {"화나", "짜증", "열받", "분노", "화가 나", "짜증나", "미치겠"},
			"불안": {"걱정", "불안", "초조", "두렵", "무섭", "떨려", "긴장"},
			"우울": {"우울", "의미 없", "공허", "허무", "살기 싫", "절망", "희망이 없"},
			"평온": {"평온", "고요", "침착", "차분", "편안", "안정"},
		},
		IntensityModifiers: IntensityModifiers{
			High: []string{"매우", "정말", "너무", "엄청", "굉장히"},
			Low:  []string{"조금", "약간", "살짝", "다소"},
		},
		NegationWords: []string{"아니", "않", "없", "말", "못"},
	}
}

// DefaultPhishingLexicon returns the built-in Korean phishing lexicon used
// when no lexicon file is configured.
func DefaultPhishingLexicon() *PhishingLexicon {
	return &PhishingLexicon{
		HighRisk:   []string{"계좌", "보안코드", "인증번호", "비밀번호", "OTP"},
		MediumRisk: []string{"송금", "이체", "금융사고", "검찰", "경찰", "금감원"},
		LowRisk:    []string{"급한", "긴급", "빨리", "지금 당장"},
	}
}

// Categories returns the lexicon's emotion names in a stable order.
// Map iteration order is not deterministic, and scoring ties are broken
// by iteration order, so callers always go through this.
func (l *EmotionLexicon) Categories() []string {
	names := make([]string, 0, len(l.Emotions))
	for name := range l.Emotions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Valid reports whether all required lexicon keys were present.
func (l *EmotionLexicon) Valid() bool {
	return len(l.Emotions) > 0 &&
		l.IntensityModifiers.High != nil &&
		l.IntensityModifiers.Low != nil &&
		l.NegationWords != nil
}

// Valid reports whether all required tier keys were present.
func (l *PhishingLexicon) Valid() bool {
	return l.HighRisk != nil && l.MediumRisk != nil && l.LowRisk != nil
}

// Static mapping from fine-grained emotions to coarse categories.
// Unmapped emotions fall back to neutral.
var (
	positiveEmotions = []string{"기쁨", "행복", "만족", "흥미", "기대", "사랑"}
	negativeEmotions = []string{"슬픔", "분노", "불안", "공포", "우울", "절망", "실망"}
)

// CoarseCategoryOf maps a fine-grained emotion label to its coarse category.
func CoarseCategoryOf(emotion string) CoarseCategory {
	for _, e := range positiveEmotions {
		if e == emotion {
			return CategoryPositive
		}
	}
	for _, e := range negativeEmotions {
		if e == emotion {
			return CategoryNegative
		}
	}
	return CategoryNeutral
}

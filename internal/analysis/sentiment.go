package analysis

// SentimentAnalyzer labels polarity by counting positive and negative keywords
type SentimentAnalyzer struct {
	positive *keywordSet
	negative *keywordSet
	deadband int
}

// NewSentimentAnalyzer builds an analyzer; scores within ±deadband are neutral
func NewSentimentAnalyzer(positive, negative []string, deadband int) *SentimentAnalyzer {
	if deadband < 0 {
		deadband = 0
	}
	return &SentimentAnalyzer{
		positive: compileKeywords(positive),
		negative: compileKeywords(negative),
		deadband: deadband,
	}
}

// Score returns positive occurrences minus negative occurrences
func (s *SentimentAnalyzer) Score(text string) int {
	return s.positive.Count(text) - s.negative.Count(text)
}

// Analyze returns the sentiment label for normalized text
func (s *SentimentAnalyzer) Analyze(text string) Sentiment {
	score := s.Score(text)
	switch {
	case score > s.deadband:
		return SentimentPositive
	case score < -s.deadband:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

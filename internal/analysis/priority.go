package analysis

// Signals are the inputs to priority scoring
type Signals struct {
	Category      Category
	Sentiment     Sentiment
	DeadlineCount int
	UrgentKeyword bool // Urgent keywords present anywhere in the text
}

// Base priority per category
var basePriority = map[Category]Priority{
	CategoryUrgent:     5,
	CategoryMeeting:    4,
	CategoryInvoice:    4,
	CategoryProject:    3,
	CategorySupport:    3,
	CategoryPersonal:   2,
	CategoryNewsletter: 1,
	CategoryGeneral:    1,
}

// ScorePriority combines the signals into a priority. Adjustments apply in a
// fixed order: base, deadline bump, sentiment bump, urgent floor, clamp.
func ScorePriority(s Signals) Priority {
	p, ok := basePriority[s.Category]
	if !ok {
		p = MinPriority
	}

	if s.DeadlineCount > 0 {
		p = min(p+1, MaxPriority)
	}
	if s.Sentiment == SentimentNegative {
		p = min(p+1, MaxPriority)
	}
	if s.UrgentKeyword && p >= 3 {
		p = max(p, 4)
	}

	return max(MinPriority, min(p, MaxPriority))
}

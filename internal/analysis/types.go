package analysis

import "time"

// Category is the single label assigned to an email
type Category string

const (
	CategoryUrgent     Category = "urgent"
	CategoryMeeting    Category = "meeting"
	CategoryProject    Category = "project"
	CategoryInvoice    Category = "invoice"
	CategoryPersonal   Category = "personal"
	CategoryNewsletter Category = "newsletter"
	CategorySupport    Category = "support"
	CategoryGeneral    Category = "general" // Fallback when no keyword set matches
)

// Categories lists every category in precedence order, general last
var Categories = []Category{
	CategoryUrgent,
	CategoryMeeting,
	CategoryProject,
	CategoryInvoice,
	CategoryPersonal,
	CategoryNewsletter,
	CategorySupport,
	CategoryGeneral,
}

// ParseCategory returns the category named by s, or false if s is not a known category
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Sentiment is the polarity label of an email
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency grades how soon a deadline falls
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Priority runs from MinPriority to MaxPriority, higher is more urgent
type Priority int

const (
	MinPriority Priority = 1
	MaxPriority Priority = 5
)

// RawEmail is the input to the pipeline
type RawEmail struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at,omitzero"`
}

// Deadline is a date or time phrase found in an email
type Deadline struct {
	Text        string    `json:"text"`         // Matched substring, verbatim
	ExtractedAt time.Time `json:"extracted_at"` // When the phrase was extracted, not the deadline itself
	Urgency     Urgency   `json:"urgency"`
}

// ProcessedEmail is the structured result of analyzing one RawEmail
type ProcessedEmail struct {
	ID                string     `json:"id"`
	Subject           string     `json:"subject"`
	Sender            string     `json:"sender"`
	Content           string     `json:"content"` // Preview of the analyzed body
	ReceivedAt        time.Time  `json:"received_at,omitzero"`
	Category          Category   `json:"category"`
	Priority          Priority   `json:"priority"`
	ActionItems       []string   `json:"action_items"`
	Deadlines         []Deadline `json:"deadlines"`
	Sentiment         Sentiment  `json:"sentiment"`
	SuggestedResponse string     `json:"suggested_response,omitempty"`
	ProcessedAt       time.Time  `json:"processed_at"`
}

// Result is the per-item outcome of a batch run
type Result struct {
	Email *ProcessedEmail
	Err   error
}

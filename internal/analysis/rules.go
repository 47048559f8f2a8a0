package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// Rules holds the keyword tables that drive classification. Any empty list
// falls back to the built-in default; the category precedence order is fixed.
type Rules struct {
	Keywords        map[Category][]string `yaml:"keywords,omitempty"`
	PositiveWords   []string              `yaml:"positive_words,omitempty"`
	NegativeWords   []string              `yaml:"negative_words,omitempty"`
	ActionMarkers   []string              `yaml:"action_markers,omitempty"`
	ImperativeVerbs []string              `yaml:"imperative_verbs,omitempty"`
}

// Default keyword tables
var (
	defaultCategoryKeywords = map[Category][]string{
		CategoryUrgent:     {"urgent", "asap", "immediately", "critical", "emergency", "deadline", "right away"},
		CategoryMeeting:    {"meeting", "meet", "call", "conference", "zoom", "teams", "sync", "agenda", "calendar"},
		CategoryProject:    {"project", "task", "deliverable", "milestone", "sprint", "roadmap"},
		CategoryInvoice:    {"invoice", "payment", "billing", "receipt", "refund", "paid"},
		CategoryPersonal:   {"personal", "family", "friend", "birthday", "vacation"},
		CategoryNewsletter: {"newsletter", "unsubscribe", "marketing", "digest", "webinar"},
		CategorySupport:    {"support", "help", "issue", "problem", "bug", "ticket"},
	}

	defaultPositiveWords = []string{
		"thank", "great", "excellent", "good", "pleased", "happy",
		"appreciate", "glad", "wonderful", "awesome",
	}

	defaultNegativeWords = []string{
		"urgent", "problem", "issue", "concern", "disappointed", "angry",
		"overdue", "unfortunately", "complaint", "frustrated", "fail", "broken",
	}

	defaultActionMarkers = []string{
		"please", "kindly", "could you", "can you", "would you", "will you",
		"need to", "needs to", "have to", "has to", "must", "should",
		"make sure", "don't forget", "remember to", "let me know",
		"action item", "todo", "to-do", "follow up",
	}

	defaultImperativeVerbs = []string{
		"send", "review", "sign", "submit", "confirm", "schedule", "update",
		"reply", "respond", "complete", "finish", "deliver", "check", "approve",
		"pay", "prepare", "share", "book", "attach", "forward", "fill", "call",
	}
)

// DefaultRules returns a copy of the built-in keyword tables
func DefaultRules() Rules {
	keywords := make(map[Category][]string, len(defaultCategoryKeywords))
	for c, words := range defaultCategoryKeywords {
		keywords[c] = append([]string(nil), words...)
	}
	return Rules{
		Keywords:        keywords,
		PositiveWords:   append([]string(nil), defaultPositiveWords...),
		NegativeWords:   append([]string(nil), defaultNegativeWords...),
		ActionMarkers:   append([]string(nil), defaultActionMarkers...),
		ImperativeVerbs: append([]string(nil), defaultImperativeVerbs...),
	}
}

// withDefaults fills every empty table from DefaultRules
func (r Rules) withDefaults() Rules {
	out := DefaultRules()
	for c, words := range r.Keywords {
		if len(words) > 0 {
			out.Keywords[c] = words
		}
	}
	if len(r.PositiveWords) > 0 {
		out.PositiveWords = r.PositiveWords
	}
	if len(r.NegativeWords) > 0 {
		out.NegativeWords = r.NegativeWords
	}
	if len(r.ActionMarkers) > 0 {
		out.ActionMarkers = r.ActionMarkers
	}
	if len(r.ImperativeVerbs) > 0 {
		out.ImperativeVerbs = r.ImperativeVerbs
	}
	return out
}

// keywordSet matches a list of keywords at word boundaries, allowing common
// inflection suffixes ("meet" matches "meeting", "friend" does not match "friendly")
type keywordSet struct {
	re *regexp.Regexp
}

func compileKeywords(words []string) *keywordSet {
	var alts []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		alts = append(alts, strings.Join(strings.Fields(regexp.QuoteMeta(w)), `\s+`))
	}
	if len(alts) == 0 {
		return &keywordSet{}
	}

	// Longest first so multi-word phrases win over their prefixes
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })

	return &keywordSet{
		re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)(?:s|es|ed|ing)?\b`),
	}
}

// Match reports whether any keyword occurs in text
func (k *keywordSet) Match(text string) bool {
	return k.re != nil && k.re.MatchString(text)
}

// Count returns the number of keyword occurrences in text
func (k *keywordSet) Count(text string) int {
	if k.re == nil {
		return 0
	}
	return len(k.re.FindAllStringIndex(text, -1))
}

// Strip removes every keyword occurrence from text
func (k *keywordSet) Strip(text string) string {
	if k.re == nil {
		return text
	}
	return k.re.ReplaceAllString(text, " ")
}

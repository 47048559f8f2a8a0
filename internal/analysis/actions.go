package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentenceBreakRe = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
	clauseBreakRe   = regexp.MustCompile(`[,;]\s+`)
)

// ActionExtractor collects request and imperative clauses from an email body
type ActionExtractor struct {
	markers   *keywordSet
	verbs     map[string]bool
	maxItems  int
	maxLength int
}

// NewActionExtractor builds an extractor. A zero maxItems or maxLength means no limit.
func NewActionExtractor(markers, verbs []string, maxItems, maxLength int) *ActionExtractor {
	e := &ActionExtractor{
		markers:   compileKeywords(markers),
		verbs:     make(map[string]bool, len(verbs)),
		maxItems:  maxItems,
		maxLength: maxLength,
	}
	for _, v := range verbs {
		e.verbs[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return e
}

// Extract returns qualifying clauses in order of appearance, without deduplication.
// A clause holding nothing but a marker ("Could you, ...") is joined to the rest of its sentence.
func (e *ActionExtractor) Extract(content string) []string {
	items := []string{}
	for _, sentence := range sentenceBreakRe.Split(content, -1) {
		starts := clauseStarts(sentence)
		for i, start := range starts {
			end := len(sentence)
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			clause := cleanClause(sentence[start:end])
			if clause != "" && e.markerOnly(clause) {
				if i+1 == len(starts) {
					break
				}
				clause = cleanClause(sentence[start:])
				end = len(sentence)
			}
			if !e.qualifies(clause) {
				continue
			}
			items = append(items, truncateRunes(clause, e.maxLength))
			if e.maxItems > 0 && len(items) >= e.maxItems {
				return items
			}
			if end == len(sentence) {
				break
			}
		}
	}
	return items
}

// clauseStarts returns the byte offset of each clause in sentence
func clauseStarts(sentence string) []int {
	starts := []int{0}
	for _, loc := range clauseBreakRe.FindAllStringIndex(sentence, -1) {
		starts = append(starts, loc[1])
	}
	return starts
}

// markerOnly reports whether clause has no words besides action markers
func (e *ActionExtractor) markerOnly(clause string) bool {
	if !e.markers.Match(clause) {
		return false
	}
	return len(strings.Fields(e.markers.Strip(clause))) == 0
}

func (e *ActionExtractor) qualifies(clause string) bool {
	words := strings.Fields(clause)
	if len(words) < 2 {
		return false
	}
	if e.markers.Match(clause) {
		return true
	}
	first := strings.ToLower(strings.Trim(words[0], `"'()[]:`))
	return e.verbs[first]
}

// cleanClause strips quoting, bullets and trailing punctuation
func cleanClause(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, ">-*•· \t")
	s = strings.TrimRight(s, ".!?;:, \t")
	return strings.TrimSpace(s)
}

// truncateRunes shortens s to n runes, marking the cut with "...". n <= 0 disables truncation.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

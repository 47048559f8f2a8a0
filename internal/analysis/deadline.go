package analysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pattern fragments shared by the deadline rules
const (
	leadInFragment  = `(?:(?:by|before|until|due(?:\s+(?:on|by))?|no\s+later\s+than|deadline(?:\s+is)?:?)\s+)?`
	clockFragment   = `(?:noon|midnight|\d{1,2}(?::\d{2})?(?:\s*[ap]m)?)`
	atClockFragment = `(?:\s+(?:at|by|@)\s+` + clockFragment + `)?`
	weekdayFragment = `(?:mon|tues|wednes|thurs|fri|satur|sun)day`
	monthFragment   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	ordinalFragment = `\d{1,2}(?:st|nd|rd|th)?`
)

// deadlineRule recognizes one family of date/time phrases
type deadlineRule struct {
	name    string
	pattern *regexp.Regexp
	urgency func(match string, ref time.Time) (Urgency, bool) // false drops the match
}

func newDeadlineRule(name, core string, urgency func(string, time.Time) (Urgency, bool)) deadlineRule {
	return deadlineRule{
		name:    name,
		pattern: regexp.MustCompile(`(?i)\b` + leadInFragment + `(?:` + core + `)\b`),
		urgency: urgency,
	}
}

func fixedUrgency(u Urgency) func(string, time.Time) (Urgency, bool) {
	return func(string, time.Time) (Urgency, bool) { return u, true }
}

// deadlineRules is the ordered rule table. When two rules match at the same
// position the longer match wins; on equal length the earlier rule wins.
var deadlineRules = []deadlineRule{
	newDeadlineRule("relative-day",
		`(?:today|tonight|tomorrow|tmrw)(?:\s+(?:morning|afternoon|evening|night))?`+atClockFragment,
		fixedUrgency(UrgencyHigh)),
	newDeadlineRule("end-of-day",
		`eod|cob|end\s+of\s+(?:the\s+)?(?:business\s+)?day|close\s+of\s+business`,
		fixedUrgency(UrgencyHigh)),
	newDeadlineRule("asap", `asap`, fixedUrgency(UrgencyHigh)),
	newDeadlineRule("weekday",
		`(?:(?:this|next|coming|on)\s+)?`+weekdayFragment+atClockFragment,
		weekdayUrgency),
	newDeadlineRule("week",
		`(?:this|next|coming)\s+week(?:end)?|end\s+of\s+(?:the\s+)?week|eow`,
		fixedUrgency(UrgencyMedium)),
	newDeadlineRule("month",
		`(?:this|next|coming)\s+(?:month|quarter)|end\s+of\s+(?:the\s+)?(?:month|quarter)|eom|eoq`,
		fixedUrgency(UrgencyLow)),
	newDeadlineRule("in-n",
		`in\s+(?:\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|a\s+couple\s+of)\s+(?:minutes?|hours?|days?|weeks?|months?)`,
		inNUrgency),
	newDeadlineRule("month-name-date",
		`(?:`+weekdayFragment+`,?\s+)?(?:`+monthFragment+`\.?\s+`+ordinalFragment+`|`+ordinalFragment+`\s+(?:of\s+)?`+monthFragment+`)(?:,?\s+\d{4})?`,
		dateUrgency),
	newDeadlineRule("numeric-date",
		`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{1,2}-\d{1,2}-\d{2,4}`,
		numericDateUrgency),
}

type deadlineSpan struct {
	start, end int
	rule       int
}

// ExtractDeadlines scans text with the rule table and returns non-overlapping
// matches in order of appearance. ref is the moment relative phrases are
// measured from; now is stamped on each result as ExtractedAt.
func ExtractDeadlines(text string, ref, now time.Time) []Deadline {
	var spans []deadlineSpan
	for i, rule := range deadlineRules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			spans = append(spans, deadlineSpan{start: loc[0], end: loc[1], rule: i})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		if li, lj := spans[i].end-spans[i].start, spans[j].end-spans[j].start; li != lj {
			return li > lj
		}
		return spans[i].rule < spans[j].rule
	})

	deadlines := []Deadline{}
	lastEnd := 0
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		match := text[s.start:s.end]
		urgency, ok := deadlineRules[s.rule].urgency(strings.ToLower(match), ref)
		if !ok {
			continue
		}
		deadlines = append(deadlines, Deadline{
			Text:        match,
			ExtractedAt: now,
			Urgency:     urgency,
		})
		lastEnd = s.end
	}
	return deadlines
}

var (
	weekdayRe = regexp.MustCompile(weekdayFragment)
	weekdays  = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
		"saturday": time.Saturday,
	}
)

// weekdayUrgency is high when the weekday is the reference day or the day after
func weekdayUrgency(match string, ref time.Time) (Urgency, bool) {
	if strings.Contains(match, "next ") {
		return UrgencyMedium, true
	}
	wd, ok := weekdays[weekdayRe.FindString(match)]
	if !ok {
		return UrgencyMedium, true
	}
	if days := (int(wd) - int(ref.Weekday()) + 7) % 7; days <= 1 {
		return UrgencyHigh, true
	}
	return UrgencyMedium, true
}

var (
	inNRe       = regexp.MustCompile(`in\s+(\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|a\s+couple\s+of)\s+(minute|hour|day|week|month)`)
	numberWords = map[string]int{
		"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
)

// inNUrgency grades "in N units" by the distance it describes
func inNUrgency(match string, _ time.Time) (Urgency, bool) {
	m := inNRe.FindStringSubmatch(match)
	if m == nil {
		return UrgencyLow, true
	}

	n, ok := numberWords[m[1]]
	if !ok {
		if strings.HasPrefix(m[1], "a ") {
			n = 2
		} else if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
	}

	switch m[2] {
	case "minute", "hour":
		return UrgencyHigh, true
	case "day":
		return urgencyForDays(n), true
	case "week":
		return urgencyForDays(n * 7), true
	default:
		return UrgencyLow, true
	}
}

func urgencyForDays(days int) Urgency {
	switch {
	case days <= 1:
		return UrgencyHigh
	case days <= 7:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

var (
	isoDateRe     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	numericDateRe = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?`)
	monthDayRe    = regexp.MustCompile(`(` + monthFragment + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?`)
	dayMonthRe    = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthFragment + `)(?:,?\s+(\d{4}))?`)
)

// dateUrgency grades an explicit calendar date by its distance from ref.
// Dates already past count as high. Strings that do not resolve to a real
// date ("24/7", "1/2") are not deadlines.
func dateUrgency(match string, ref time.Time) (Urgency, bool) {
	target, ok := parseDeadlineDate(match, ref)
	if !ok {
		return "", false
	}
	return urgencyForDays(calendarDaysBetween(ref, target)), true
}

var (
	leadInRe    = regexp.MustCompile(`^(?:by|before|until|due|no\s+later\s+than|deadline)\b`)
	shortDateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}$`)
)

// numericDateUrgency grades numeric dates. A bare month/day pair with no
// year and no lead-in reads as a fraction ("1/2 of the team") and is dropped.
func numericDateUrgency(match string, ref time.Time) (Urgency, bool) {
	if !leadInRe.MatchString(match) && shortDateRe.MatchString(match) {
		return "", false
	}
	return dateUrgency(match, ref)
}

// calendarDaysBetween counts whole calendar days from from's date to to's
// date, ignoring clock time and DST shifts
func calendarDaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func parseDeadlineDate(match string, ref time.Time) (time.Time, bool) {
	var year, month, day int
	explicitYear := false

	if m := isoDateRe.FindStringSubmatch(match); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		explicitYear = true
	} else if m := monthDayRe.FindStringSubmatch(match); m != nil {
		month = monthNumber(m[1])
		day, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			explicitYear = true
		}
	} else if m := dayMonthRe.FindStringSubmatch(match); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = monthNumber(m[2])
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			explicitYear = true
		}
	} else if m := numericDateRe.FindStringSubmatch(match); m != nil {
		// Month first
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			explicitYear = true
		}
	} else {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if !explicitYear {
		year = ref.Year()
	}

	target := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location())
	if target.Month() != time.Month(month) {
		return time.Time{}, false // Day overflowed the month, e.g. Feb 30
	}

	// A date without a year that already passed refers to next year
	if !explicitYear && target.Before(time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())) {
		target = target.AddDate(1, 0, 0)
	}
	return target, true
}

func monthNumber(name string) int {
	if len(name) < 3 {
		return 0
	}
	switch name[:3] {
	case "jan":
		return 1
	case "feb":
		return 2
	case "mar":
		return 3
	case "apr":
		return 4
	case "may":
		return 5
	case "jun":
		return 6
	case "jul":
		return 7
	case "aug":
		return 8
	case "sep":
		return 9
	case "oct":
		return 10
	case "nov":
		return 11
	case "dec":
		return 12
	}
	return 0
}

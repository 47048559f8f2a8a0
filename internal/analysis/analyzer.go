package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Options configures an Analyzer. Zero limits disable the corresponding cap.
type Options struct {
	Rules             Rules
	MaxSubjectLength  int
	MaxContentLength  int
	MaxActionItems    int
	MaxActionLength   int
	MaxDeadlines      int
	PreviewLength     int
	Workers           int // Batch concurrency, 0 means GOMAXPROCS
	SentimentDeadband int
	ResponsesEnabled  bool
	Clock             func() time.Time
	Logger            *slog.Logger
}

// DefaultOptions returns the stock limits and keyword tables
func DefaultOptions() Options {
	return Options{
		Rules:            DefaultRules(),
		MaxSubjectLength: 200,
		MaxContentLength: 10000,
		MaxActionItems:   5,
		MaxActionLength:  200,
		MaxDeadlines:     3,
		PreviewLength:    500,
		ResponsesEnabled: true,
	}
}

// Analyzer turns raw emails into processed records. It is safe for
// concurrent use; nothing is mutated after New returns.
type Analyzer struct {
	opts        Options
	categorizer *Categorizer
	sentiment   *SentimentAnalyzer
	actions     *ActionExtractor
	suggester   *Suggester
	clock       func() time.Time
	logger      *slog.Logger
}

// New compiles the rule tables and templates
func New(opts Options) (*Analyzer, error) {
	rules := opts.Rules.withDefaults()

	suggester, err := NewSuggester(opts.ResponsesEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to load reply templates: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Analyzer{
		opts:        opts,
		categorizer: NewCategorizer(rules.Keywords),
		sentiment:   NewSentimentAnalyzer(rules.PositiveWords, rules.NegativeWords, opts.SentimentDeadband),
		actions:     NewActionExtractor(rules.ActionMarkers, rules.ImperativeVerbs, opts.MaxActionItems, opts.MaxActionLength),
		suggester:   suggester,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Process analyzes a single email. It fails only when the identity fields are missing.
func (a *Analyzer) Process(raw RawEmail) (*ProcessedEmail, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	now := a.clock()
	ref := raw.ReceivedAt
	if ref.IsZero() {
		ref = now
	}

	subject := clip(raw.Subject, a.opts.MaxSubjectLength)
	content := clip(raw.Content, a.opts.MaxContentLength)
	text := Normalize(subject, content)

	category := a.categorizer.Categorize(text)
	sentiment := a.sentiment.Analyze(text)
	deadlines := a.deadlines(subject, content, ref, now)
	actions := a.actions.Extract(content)

	priority := ScorePriority(Signals{
		Category:      category,
		Sentiment:     sentiment,
		DeadlineCount: len(deadlines),
		UrgentKeyword: a.categorizer.Matches(CategoryUrgent, text),
	})

	reply, err := a.suggester.Suggest(ReplyInput{
		Sender:      raw.Sender,
		Subject:     subject,
		Category:    category,
		Priority:    priority,
		Sentiment:   sentiment,
		ActionItems: actions,
	})
	if err != nil {
		a.logger.Warn("reply suggestion failed", "id", raw.ID, "error", err)
		reply = ""
	}

	a.logger.Debug("email analyzed",
		"id", raw.ID,
		"category", category,
		"priority", priority,
		"sentiment", sentiment,
		"deadlines", len(deadlines),
		"actions", len(actions),
	)

	return &ProcessedEmail{
		ID:                raw.ID,
		Subject:           subject,
		Sender:            raw.Sender,
		Content:           truncateRunes(content, a.opts.PreviewLength),
		ReceivedAt:        raw.ReceivedAt,
		Category:          category,
		Priority:          priority,
		ActionItems:       actions,
		Deadlines:         deadlines,
		Sentiment:         sentiment,
		SuggestedResponse: reply,
		ProcessedAt:       now,
	}, nil
}

// ProcessBatch analyzes emails concurrently. Results are positional: result i
// belongs to emails[i]. Failures are reported per item and never stop the
// batch. Once ctx is done, items not yet finished get ctx.Err().
func (a *Analyzer) ProcessBatch(ctx context.Context, emails []RawEmail) []Result {
	results := make([]Result, len(emails))

	workers := a.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, raw := range emails {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return nil
			}

			email, err := a.Process(raw)
			if ctxErr := ctx.Err(); ctxErr != nil {
				results[i] = Result{Err: ctxErr}
				return nil
			}
			results[i] = Result{Email: email, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	a.logger.Debug("batch analyzed", "count", len(emails))
	return results
}

func (a *Analyzer) deadlines(subject, content string, ref, now time.Time) []Deadline {
	found := ExtractDeadlines(subject, ref, now)
	found = append(found, ExtractDeadlines(content, ref, now)...)
	if limit := a.opts.MaxDeadlines; limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

func validate(raw RawEmail) error {
	if strings.TrimSpace(raw.ID) == "" {
		return &InputError{Field: "id", Reason: "is required"}
	}
	if strings.TrimSpace(raw.Sender) == "" {
		return &InputError{Field: "sender", Reason: "is required"}
	}
	return nil
}

// clip cuts s to at most n runes. n <= 0 leaves s unchanged.
func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

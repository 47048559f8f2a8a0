package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mailsense/mailsense/internal/analysis"
	"github.com/mailsense/mailsense/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	replyStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var priorityColors = map[analysis.Priority]lipgloss.Color{
	1: lipgloss.Color("245"),
	2: lipgloss.Color("39"),
	3: lipgloss.Color("42"),
	4: lipgloss.Color("214"),
	5: lipgloss.Color("196"),
}

var sentimentColors = map[analysis.Sentiment]lipgloss.Color{
	analysis.SentimentPositive: lipgloss.Color("42"),
	analysis.SentimentNegative: lipgloss.Color("196"),
	analysis.SentimentNeutral:  lipgloss.Color("245"),
}

func priorityBadge(p analysis.Priority) string {
	return lipgloss.NewStyle().Bold(true).Foreground(priorityColors[p]).Render(fmt.Sprintf("P%d", p))
}

func sentimentBadge(s analysis.Sentiment) string {
	return lipgloss.NewStyle().Foreground(sentimentColors[s]).Render(string(s))
}

// renderEmail formats one processed email as a text card
func renderEmail(e *analysis.ProcessedEmail) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(e.Subject))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("From", e.Sender)
	row("ID", mutedStyle.Render(e.ID))
	row("Category", string(e.Category))
	row("Priority", priorityBadge(e.Priority))
	row("Sentiment", sentimentBadge(e.Sentiment))

	if len(e.Deadlines) > 0 {
		parts := make([]string, len(e.Deadlines))
		for i, d := range e.Deadlines {
			parts[i] = fmt.Sprintf("%s (%s)", d.Text, d.Urgency)
		}
		row("Deadlines", strings.Join(parts, ", "))
	}

	if len(e.ActionItems) > 0 {
		b.WriteString(labelStyle.Render("Actions"))
		b.WriteString("\n")
		for _, item := range e.ActionItems {
			b.WriteString("  - " + item + "\n")
		}
	}

	if e.SuggestedResponse != "" {
		b.WriteString(replyStyle.Render(e.SuggestedResponse))
		b.WriteString("\n")
	}

	return b.String()
}

// renderEmailTable formats emails one per line
func renderEmailTable(emails []*analysis.ProcessedEmail) string {
	var b strings.Builder

	cat := lipgloss.NewStyle().Width(12)
	sender := lipgloss.NewStyle().Width(28).MaxWidth(28)

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-12s %-28s %s", "PRI", "CATEGORY", "FROM", "SUBJECT")))
	b.WriteString("\n")
	for _, e := range emails {
		b.WriteString(priorityBadge(e.Priority))
		b.WriteString("   ")
		b.WriteString(cat.Render(string(e.Category)))
		b.WriteString(" ")
		b.WriteString(sender.Render(truncate(e.Sender, 27)))
		b.WriteString(" ")
		b.WriteString(truncate(e.Subject, 60))
		b.WriteString("\n")
	}

	return b.String()
}

// renderStats formats the dashboard aggregates
func renderStats(s *store.Stats, windowDays int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Mailsense Statistics"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Total"))
	b.WriteString(fmt.Sprintf("%d\n", s.Total))
	b.WriteString(labelStyle.Render("Recent"))
	b.WriteString(fmt.Sprintf("%d (last %d days)\n\n", s.RecentActivity, windowDays))

	b.WriteString(headerStyle.Render("Categories"))
	b.WriteString("\n")
	for _, c := range analysis.Categories {
		b.WriteString(labelStyle.Render(string(c)))
		b.WriteString(fmt.Sprintf("%d\n", s.Categories[c]))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Priorities"))
	b.WriteString("\n")
	for p := analysis.MaxPriority; p >= analysis.MinPriority; p-- {
		b.WriteString(labelStyle.Render(priorityBadge(p)))
		b.WriteString(fmt.Sprintf("%d\n", s.Priorities[p]))
	}

	return b.String()
}

type jsonResult struct {
	Source string                   `json:"source"`
	Email  *analysis.ProcessedEmail `json:"email,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func writeResultsJSON(w io.Writer, sources []string, results []analysis.Result) error {
	out := make([]jsonResult, len(results))
	for i, res := range results {
		out[i].Source = sources[i]
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			continue
		}
		out[i].Email = res.Email
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

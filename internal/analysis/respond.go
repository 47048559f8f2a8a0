package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"net/mail"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Reply bodies available in every category template
const (
	variantStandard   = "standard"
	variantEmpathetic = "empathetic"
)

// maxReplyActions caps the action items echoed back in a reply
const maxReplyActions = 3

// ReplyInput carries the signals a suggested reply is built from
type ReplyInput struct {
	Sender      string
	Subject     string
	Category    Category
	Priority    Priority
	Sentiment   Sentiment
	ActionItems []string
}

// ReplyData is available to the reply templates
type ReplyData struct {
	Name        string
	Subject     string
	Category    Category
	Priority    Priority
	ActionItems []string
}

// Suggester renders canned replies keyed by category
type Suggester struct {
	enabled   bool
	templates map[Category]*template.Template
}

// NewSuggester parses the embedded category templates. A disabled suggester
// always returns an empty reply.
func NewSuggester(enabled bool) (*Suggester, error) {
	s := &Suggester{
		enabled:   enabled,
		templates: make(map[Category]*template.Template),
	}

	for _, category := range Categories {
		if category == CategoryNewsletter {
			continue
		}

		name := string(category)
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		for _, variant := range []string{variantStandard, variantEmpathetic} {
			if tmpl.Lookup(variant) == nil {
				return nil, fmt.Errorf("template %s does not define %q", name, variant)
			}
		}

		s.templates[category] = tmpl
	}

	return s, nil
}

// Suggest builds the reply for in. Newsletters never get a reply.
func (s *Suggester) Suggest(in ReplyInput) (string, error) {
	if !s.enabled || in.Category == CategoryNewsletter {
		return "", nil
	}

	tmpl, ok := s.templates[in.Category]
	if !ok {
		tmpl = s.templates[CategoryGeneral]
	}

	variant := variantStandard
	if in.Sentiment == SentimentNegative {
		variant = variantEmpathetic
	}

	data := ReplyData{
		Name:        senderName(in.Sender),
		Subject:     in.Subject,
		Category:    in.Category,
		Priority:    in.Priority,
		ActionItems: in.ActionItems,
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, variant, data); err != nil {
		return "", fmt.Errorf("failed to render %s reply: %w", in.Category, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", data.Name)
	if in.Priority >= 4 {
		b.WriteString("Thanks for flagging this, I'm treating it as a priority. ")
	}
	b.WriteString(strings.TrimSpace(body.String()))
	b.WriteString("\n")

	if items := in.ActionItems; len(items) > 0 {
		if len(items) > maxReplyActions {
			items = items[:maxReplyActions]
		}
		b.WriteString("\nI'll follow up on:\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	b.WriteString("\nBest regards")
	return b.String(), nil
}

// senderName picks a greeting name from an address: the display name, else
// the mailbox local part, else "there"
func senderName(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "there"
	}

	if addr, err := mail.ParseAddress(sender); err == nil {
		if fields := strings.Fields(addr.Name); len(fields) > 0 {
			return fields[0]
		}
		sender = addr.Address
	}

	local, _, _ := strings.Cut(sender, "@")
	local = strings.Trim(local, `<>" `)
	if local == "" {
		return "there"
	}
	return local
}

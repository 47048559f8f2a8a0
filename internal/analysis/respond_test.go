package analysis

import (
	"strings"
	"testing"
)

func TestSuggest(t *testing.T) {
	s, err := NewSuggester(true)
	if err != nil {
		t.Fatalf("failed to create suggester: %v", err)
	}

	tests := []struct {
		name        string
		in          ReplyInput
		contains    []string
		notContains []string
	}{
		{
			name: "standard general reply",
			in: ReplyInput{
				Sender: "bob@example.com", Subject: "Quarterly notes",
				Category: CategoryGeneral, Priority: 1, Sentiment: SentimentNeutral,
			},
			contains:    []string{"Hi bob,", `"Quarterly notes"`, "Best regards"},
			notContains: []string{"treating it as a priority", "I'll follow up on"},
		},
		{
			name: "high priority gets urgency clause",
			in: ReplyInput{
				Sender: "Jane Doe <jane@example.com>", Subject: "Sync",
				Category: CategoryMeeting, Priority: 4, Sentiment: SentimentNeutral,
			},
			contains: []string{"Hi Jane,", "treating it as a priority", "calendar"},
		},
		{
			name: "negative sentiment uses empathetic body",
			in: ReplyInput{
				Sender: "ops@example.com", Subject: "Outage",
				Category: CategorySupport, Priority: 3, Sentiment: SentimentNegative,
			},
			contains: []string{"I'm sorry for the trouble"},
		},
		{
			name: "action items are listed up to three",
			in: ReplyInput{
				Sender: "pm@example.com", Subject: "Launch",
				Category: CategoryProject, Priority: 3, Sentiment: SentimentNeutral,
				ActionItems: []string{"Send the deck", "Book the room", "Confirm the date", "Share the notes"},
			},
			contains:    []string{"I'll follow up on:", "- Send the deck", "- Book the room", "- Confirm the date"},
			notContains: []string{"Share the notes"},
		},
		{
			name: "unknown category falls back to general",
			in: ReplyInput{
				Sender: "x@example.com", Subject: "Hello",
				Category: "other", Priority: 1, Sentiment: SentimentNeutral,
			},
			contains: []string{`Thanks for your email about "Hello"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Suggest(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("reply missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("reply should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestSuggestNewsletterIsEmpty(t *testing.T) {
	s, err := NewSuggester(true)
	if err != nil {
		t.Fatalf("failed to create suggester: %v", err)
	}

	for _, priority := range []Priority{1, 3, 5} {
		got, err := s.Suggest(ReplyInput{
			Sender:    "news@example.com",
			Category:  CategoryNewsletter,
			Priority:  priority,
			Sentiment: SentimentNegative,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("priority %d: got %q, want empty", priority, got)
		}
	}
}

func TestSuggestDisabled(t *testing.T) {
	s, err := NewSuggester(false)
	if err != nil {
		t.Fatalf("failed to create suggester: %v", err)
	}

	got, err := s.Suggest(ReplyInput{Sender: "a@example.com", Category: CategoryUrgent, Priority: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{sender: "Jane Doe <jane@example.com>", want: "Jane"},
		{sender: "<carol@example.com>", want: "carol"},
		{sender: "bob@example.com", want: "bob"},
		{sender: "", want: "there"},
		{sender: "   ", want: "there"},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			if got := senderName(tt.sender); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

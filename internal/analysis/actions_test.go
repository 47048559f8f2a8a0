package analysis

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestExtractor(maxItems, maxLength int) *ActionExtractor {
	rules := DefaultRules()
	return NewActionExtractor(rules.ActionMarkers, rules.ImperativeVerbs, maxItems, maxLength)
}

func TestActionExtractor(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "marker clause before comma",
			content: "Please pay immediately, payment is critical.",
			want:    []string{"Please pay immediately"},
		},
		{
			name:    "leading imperative verbs",
			content: "Review the draft; sign the contract, and then we are done",
			want:    []string{"Review the draft", "sign the contract"},
		},
		{
			name:    "marker inside clause",
			content: "I think we need to finish the slides before lunch.",
			want:    []string{"I think we need to finish the slides before lunch"},
		},
		{
			name:    "bulleted lines",
			content: "Agenda:\n- Send invoice\n* Book the room\n> Let me know if that works",
			want:    []string{"Send invoice", "Book the room", "Let me know if that works"},
		},
		{
			name:    "single word clauses are ignored",
			content: "Send. Thanks! Confirm?",
			want:    []string{},
		},
		{
			name:    "duplicates are kept",
			content: "Please call. Please call.",
			want:    []string{"Please call", "Please call"},
		},
		{
			name:    "marker alone before an aside",
			content: "Could you, when you get a chance, send the report.",
			want:    []string{"Could you, when you get a chance, send the report"},
		},
		{
			name:    "marker alone before the request",
			content: "Please, send it over. Thanks",
			want:    []string{"Please, send it over"},
		},
		{
			name:    "trailing marker alone",
			content: "Sure thing, can you?",
			want:    []string{},
		},
		{
			name:    "plain statements",
			content: "Let's meet Friday at 3pm to discuss the project deliverable.",
			want:    []string{},
		},
		{
			name:    "empty",
			content: "",
			want:    []string{},
		},
	}

	e := newTestExtractor(5, 200)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionExtractorLimits(t *testing.T) {
	t.Run("max items", func(t *testing.T) {
		content := strings.Repeat("Please check this. ", 8)
		got := newTestExtractor(5, 200).Extract(content)
		if len(got) != 5 {
			t.Errorf("got %d items, want 5", len(got))
		}
	})

	t.Run("unlimited items", func(t *testing.T) {
		content := strings.Repeat("Please check this. ", 8)
		got := newTestExtractor(0, 200).Extract(content)
		if len(got) != 8 {
			t.Errorf("got %d items, want 8", len(got))
		}
	})

	t.Run("long clause is truncated", func(t *testing.T) {
		content := "Please review " + strings.Repeat("é", 300)
		got := newTestExtractor(5, 200).Extract(content)
		if len(got) != 1 {
			t.Fatalf("got %d items, want 1", len(got))
		}
		if n := utf8.RuneCountInString(got[0]); n != 203 {
			t.Errorf("got %d runes, want 203", n)
		}
		if !strings.HasSuffix(got[0], "...") {
			t.Errorf("got %q, want ... suffix", got[0])
		}
	})
}

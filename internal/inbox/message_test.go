package inbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

const plainMessage = `From: Jane Doe <jane@example.com>
To: me@example.com
Subject: =?UTF-8?Q?Caf=C3=A9_meeting?=
Date: Wed, 05 Mar 2025 10:00:00 +0000
Message-ID: <abc@example.com>
Content-Type: text/plain; charset=utf-8

Let's meet Friday at 3pm.
`

const multipartMessage = `From: billing@vendor.com
Subject: Invoice 42
Content-Type: multipart/alternative; boundary=XYZ

--XYZ
Content-Type: text/plain; charset=utf-8

Please pay by Friday.
--XYZ
Content-Type: text/html; charset=utf-8

<p>Please pay by <b>Friday</b>.</p>
--XYZ--
`

const htmlOnlyMessage = `From: news@example.com
Subject: Weekly digest
Content-Type: text/html; charset=utf-8

<html><head><style>p{}</style></head><body><p>Top stories</p><p>Click to unsubscribe</p></body></html>
`

const latin1Message = "From: pierre@example.fr\nSubject: Menu\nContent-Type: text/plain; charset=iso-8859-1\n\ncaf\xe9 cr\xe8me\n"

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		from    string
		subject string
		text    string
		html    string
	}{
		{
			name:    "plain with encoded subject",
			raw:     plainMessage,
			from:    "Jane Doe <jane@example.com>",
			subject: "Café meeting",
			text:    "Let's meet Friday at 3pm.\n",
		},
		{
			name:    "multipart alternative",
			raw:     multipartMessage,
			from:    "billing@vendor.com",
			subject: "Invoice 42",
			text:    "Please pay by Friday.",
			html:    "<p>Please pay by <b>Friday</b>.</p>",
		},
		{
			name:    "latin-1 body",
			raw:     latin1Message,
			from:    "pierre@example.fr",
			subject: "Menu",
			text:    "café crème\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage(strings.NewReader(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.From != tt.from {
				t.Errorf("got from %q, want %q", msg.From, tt.from)
			}
			if msg.Subject != tt.subject {
				t.Errorf("got subject %q, want %q", msg.Subject, tt.subject)
			}
			if strings.TrimSpace(msg.Text) != strings.TrimSpace(tt.text) {
				t.Errorf("got text %q, want %q", msg.Text, tt.text)
			}
			if strings.TrimSpace(msg.HTML) != strings.TrimSpace(tt.html) {
				t.Errorf("got html %q, want %q", msg.HTML, tt.html)
			}
		})
	}
}

func TestParseMessageHeaders(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(plainMessage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	if !msg.ReceivedAt.Equal(want) {
		t.Errorf("got date %v, want %v", msg.ReceivedAt, want)
	}
	if msg.MessageID != "abc@example.com" {
		t.Errorf("got message id %q, want abc@example.com", msg.MessageID)
	}
}

func TestMessageBodyFallsBackToHTML(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(htmlOnlyMessage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := msg.Body(nil)
	if got != "Top stories\nClick to unsubscribe" {
		t.Errorf("got %q", got)
	}
}

func TestRawEmail(t *testing.T) {
	t.Run("fills missing headers", func(t *testing.T) {
		raw := (&Message{Text: "hello"}).RawEmail(nil)
		if raw.Subject != "No Subject" {
			t.Errorf("got subject %q, want No Subject", raw.Subject)
		}
		if raw.Sender != "Unknown Sender" {
			t.Errorf("got sender %q, want Unknown Sender", raw.Sender)
		}
		if raw.ID == "" {
			t.Error("expected a content id")
		}
	})

	t.Run("id is stable", func(t *testing.T) {
		msg := &Message{From: "a@example.com", Subject: "Hi", Text: "body"}
		first := msg.RawEmail(nil)
		second := msg.RawEmail(nil)
		if first.ID != second.ID {
			t.Errorf("got %s and %s, want equal ids", first.ID, second.ID)
		}
		if first.ID != ContentID("a@example.com", "Hi", "body") {
			t.Errorf("got %s, want ContentID of the fields", first.ID)
		}
	})
}

func TestContentID(t *testing.T) {
	base := ContentID("a@example.com", "Hi", "hello")
	if len(base) != 32 {
		t.Fatalf("got %q, want 32 hex chars", base)
	}

	long := strings.Repeat("x", 100)
	if ContentID("s", "t", long) != ContentID("s", "t", long+"ignored tail") {
		t.Error("expected content beyond 100 characters to be ignored")
	}
	if ContentID("s", "t", "one") == ContentID("s", "t", "two") {
		t.Error("expected different content to change the id")
	}
}

func TestNewestUIDs(t *testing.T) {
	tests := []struct {
		name  string
		uids  []uint32
		limit int
		want  []uint32
	}{
		{name: "under limit", uids: []uint32{3, 1, 2}, limit: 5, want: []uint32{1, 2, 3}},
		{name: "keeps newest", uids: []uint32{10, 4, 7, 1}, limit: 2, want: []uint32{7, 10}},
		{name: "no limit", uids: []uint32{2, 1}, limit: 0, want: []uint32{1, 2}},
		{name: "empty", uids: nil, limit: 3, want: []uint32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newestUIDs(tt.uids, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestParseIMAPMessageEnvelopeFallback(t *testing.T) {
	date := time.Date(2025, 3, 4, 8, 30, 0, 0, time.UTC)
	msg := &imap.Message{
		Uid: 42,
		Envelope: &imap.Envelope{
			Subject:   "Quarterly review",
			MessageId: "<q@example.com>",
			Date:      date,
			From: []*imap.Address{
				{PersonalName: "Ann Lee", MailboxName: "ann", HostName: "example.com"},
			},
		},
	}

	got, err := parseIMAPMessage(msg, &imap.BodySectionName{Peek: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UID != 42 {
		t.Errorf("got uid %d, want 42", got.UID)
	}
	if got.Subject != "Quarterly review" {
		t.Errorf("got subject %q", got.Subject)
	}
	if got.From != "Ann Lee <ann@example.com>" {
		t.Errorf("got from %q", got.From)
	}
	if !got.ReceivedAt.Equal(date) {
		t.Errorf("got date %v, want %v", got.ReceivedAt, date)
	}
}

func TestFetchRecentRequiresConnection(t *testing.T) {
	m := &Monitor{}
	if _, err := m.FetchRecent(context.Background(), 7, 10); err != ErrNotConnected {
		t.Errorf("got %v, want ErrNotConnected", err)
	}
}

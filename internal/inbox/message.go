package inbox

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/mailsense/mailsense/internal/analysis"
)

// ErrNotConnected is returned by Monitor methods called before Connect
var ErrNotConnected = errors.New("not connected to IMAP server")

// Placeholders for messages missing the header, kept stable so content ids stay stable
const (
	noSubject     = "No Subject"
	unknownSender = "Unknown Sender"
)

// Message is an email decoded from RFC 5322 wire format
type Message struct {
	UID        uint32 // IMAP UID, zero for file imports
	MessageID  string
	From       string // "Name <address>" as it appeared in the header
	Subject    string
	Text       string // First text/plain part
	HTML       string // First text/html part
	ReceivedAt time.Time
}

// ParseMessage decodes a message, walking multipart bodies for the first
// plain and HTML parts. Parts in unknown charsets are read undecoded.
func ParseMessage(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}

	h := mr.Header
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = formatAddress(from[0])
	} else {
		msg.From = strings.TrimSpace(h.Get("From"))
	}

	// Process each part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if msg.Text == "" && msg.HTML == "" {
				return nil, fmt.Errorf("failed to read message body: %w", err)
			}
			break
		}
		if p == nil {
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}

		switch {
		case (ct == "" || strings.HasPrefix(ct, "text/plain")) && msg.Text == "":
			msg.Text = string(body)
		case strings.HasPrefix(ct, "text/html") && msg.HTML == "":
			msg.HTML = string(body)
		}
	}

	return msg, nil
}

func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// Body returns the plain text body, falling back to the HTML part rendered as text
func (m *Message) Body(logger *slog.Logger) string {
	if strings.TrimSpace(m.Text) != "" || m.HTML == "" {
		return m.Text
	}
	text, err := HTMLToText(m.HTML)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to convert html body", "message_id", m.MessageID, "error", err)
		}
		return ""
	}
	return text
}

// RawEmail converts the message into pipeline input. The id is derived from
// content, so the same message imported twice gets the same id.
func (m *Message) RawEmail(logger *slog.Logger) analysis.RawEmail {
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		subject = noSubject
	}
	sender := strings.TrimSpace(m.From)
	if sender == "" {
		sender = unknownSender
	}
	content := m.Body(logger)

	return analysis.RawEmail{
		ID:         ContentID(sender, subject, content),
		Subject:    subject,
		Sender:     sender,
		Content:    content,
		ReceivedAt: m.ReceivedAt,
	}
}

// ContentID hashes the sender, subject and the first 100 characters of content
func ContentID(sender, subject, content string) string {
	if runes := []rune(content); len(runes) > 100 {
		content = string(runes[:100])
	}
	sum := md5.Sum([]byte(sender + subject + content))
	return hex.EncodeToString(sum[:])
}

package inbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mailsense/mailsense/internal/config"
)

// Monitor handles the IMAP connection used to scan a mailbox
type Monitor struct {
	config config.InboxConfig
	client *client.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewMonitor creates a new inbox monitor
func NewMonitor(cfg config.InboxConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Connect establishes the IMAP connection and logs in
func (m *Monitor) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	m.logger.Info("connecting to IMAP server", "addr", addr)

	dialer := &net.Dialer{Timeout: time.Duration(m.config.TimeoutSec) * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	c, err := client.DialWithDialerTLS(dialer, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	m.logger.Info("IMAP login successful", "email", m.config.Email)
	return nil
}

// Disconnect closes the IMAP connection
func (m *Monitor) Disconnect() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Logout()
	m.client = nil
	return err
}

// FetchRecent fetches up to limit messages received in the last days days,
// newest last. With unseen_only configured, seen messages are skipped.
// Messages are fetched with BODY.PEEK so scanning never marks them read.
func (m *Monitor) FetchRecent(ctx context.Context, days, limit int) ([]*Message, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	mbox, err := m.client.Select(m.config.Folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}
	m.logger.Debug("mailbox selected", "folder", m.config.Folder, "messages", mbox.Messages)

	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	if days > 0 {
		criteria.Since = m.now().AddDate(0, 0, -days)
	}
	if m.config.UnseenOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	uids = newestUIDs(uids, limit)
	m.logger.Info("found emails to scan", "count", len(uids), "days", days)
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var out []*Message
	for msg := range messages {
		parsed, err := parseIMAPMessage(msg, section)
		if err != nil {
			m.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, parsed)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return out, nil
}

// Scan connects, fetches recent messages and disconnects
func (m *Monitor) Scan(ctx context.Context, days, limit int) ([]*Message, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := m.Disconnect(); err != nil {
			m.logger.Warn("IMAP logout failed", "error", err)
		}
	}()

	return m.FetchRecent(ctx, days, limit)
}

// newestUIDs keeps the limit highest UIDs, ascending. limit <= 0 keeps all.
func newestUIDs(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}

// parseIMAPMessage decodes the fetched body, falling back to the envelope
// for headers the body parse did not yield
func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (*Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("empty fetch response")
	}

	out := &Message{}
	if r := msg.GetBody(section); r != nil {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		parsed, err := ParseMessage(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		out = parsed
	}
	out.UID = msg.Uid

	if env := msg.Envelope; env != nil {
		if out.Subject == "" {
			out.Subject = env.Subject
		}
		if out.MessageID == "" {
			out.MessageID = env.MessageId
		}
		if out.From == "" && len(env.From) > 0 {
			from := env.From[0]
			if from.PersonalName != "" {
				out.From = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
			} else {
				out.From = from.Address()
			}
		}
		if out.ReceivedAt.IsZero() {
			out.ReceivedAt = env.Date
		}
	}
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = msg.InternalDate
	}

	return out, nil
}

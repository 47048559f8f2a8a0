package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mailsense/mailsense/internal/analysis"
)

// ErrNotFound is returned when an email id is not stored
var ErrNotFound = errors.New("email not found")

// Store persists processed emails in SQLite
type Store struct {
	db *sqlx.DB
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category    analysis.Category
	MinPriority analysis.Priority // Inclusive
	Limit       int               // 0 = no limit
}

// Stats are the dashboard aggregates
type Stats struct {
	Total          int                       `json:"total_emails"`
	RecentActivity int                       `json:"recent_activity"`
	Categories     map[analysis.Category]int `json:"categories"`
	Priorities     map[analysis.Priority]int `json:"priorities"`
}

// emailRow is the column mapping for the emails table
type emailRow struct {
	ID                string `db:"id"`
	Subject           string `db:"subject"`
	Sender            string `db:"sender"`
	Content           string `db:"content"`
	Category          string `db:"category"`
	Priority          int    `db:"priority"`
	Sentiment         string `db:"sentiment"`
	ActionItems       string `db:"action_items"`
	Deadlines         string `db:"deadlines"`
	SuggestedResponse string `db:"suggested_response"`
	ReceivedAt        int64  `db:"received_at"` // 0 when unknown
	ProcessedAt       int64  `db:"processed_at"`
}

const upsertQuery = `
	INSERT OR REPLACE INTO emails
		(id, subject, sender, content, category, priority, sentiment,
		 action_items, deadlines, suggested_response, received_at, processed_at)
	VALUES
		(:id, :subject, :sender, :content, :category, :priority, :sentiment,
		 :action_items, :deadlines, :suggested_response, :received_at, :processed_at)
`

// Open opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts the email, replacing any earlier record with the same id
func (s *Store) Save(ctx context.Context, email *analysis.ProcessedEmail) error {
	row, err := toRow(email)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsertQuery, row); err != nil {
		return fmt.Errorf("failed to save email %s: %w", email.ID, err)
	}
	return nil
}

// SaveAll saves emails in a single transaction
func (s *Store) SaveAll(ctx context.Context, emails []*analysis.ProcessedEmail) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, email := range emails {
		row, err := toRow(email)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuery, row); err != nil {
			return fmt.Errorf("failed to save email %s: %w", email.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit emails: %w", err)
	}
	return nil
}

// Get returns the email with the given id
func (s *Store) Get(ctx context.Context, id string) (*analysis.ProcessedEmail, error) {
	var row emailRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM emails WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return row.toEmail()
}

// List returns emails matching f, most recently processed first
func (s *Store) List(ctx context.Context, f Filter) ([]*analysis.ProcessedEmail, error) {
	var where []string
	var args []any

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.MinPriority > 0 {
		where = append(where, "priority >= ?")
		args = append(args, int(f.MinPriority))
	}

	query := `SELECT * FROM emails`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY processed_at DESC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	emails := make([]*analysis.ProcessedEmail, 0, len(rows))
	for _, row := range rows {
		email, err := row.toEmail()
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// Stats aggregates the dashboard counts. Recent activity counts emails
// processed within window before now.
func (s *Store) Stats(ctx context.Context, now time.Time, window time.Duration) (*Stats, error) {
	stats := &Stats{
		Categories: make(map[analysis.Category]int, len(analysis.Categories)),
		Priorities: make(map[analysis.Priority]int, int(analysis.MaxPriority)),
	}
	for _, c := range analysis.Categories {
		stats.Categories[c] = 0
	}
	for p := analysis.MinPriority; p <= analysis.MaxPriority; p++ {
		stats.Priorities[p] = 0
	}

	if err := s.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM emails`); err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}

	since := now.Add(-window).UnixMilli()
	if err := s.db.GetContext(ctx, &stats.RecentActivity,
		`SELECT COUNT(*) FROM emails WHERE processed_at >= ?`, since); err != nil {
		return nil, fmt.Errorf("failed to count recent emails: %w", err)
	}

	var categories []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &categories,
		`SELECT category, COUNT(*) AS count FROM emails GROUP BY category`); err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}
	for _, c := range categories {
		stats.Categories[analysis.Category(c.Category)] = c.Count
	}

	var priorities []struct {
		Priority int `db:"priority"`
		Count    int `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &priorities,
		`SELECT priority, COUNT(*) AS count FROM emails GROUP BY priority`); err != nil {
		return nil, fmt.Errorf("failed to get priority stats: %w", err)
	}
	for _, p := range priorities {
		stats.Priorities[analysis.Priority(p.Priority)] = p.Count
	}

	return stats, nil
}

func toRow(e *analysis.ProcessedEmail) (emailRow, error) {
	actions, err := json.Marshal(nonNil(e.ActionItems))
	if err != nil {
		return emailRow{}, fmt.Errorf("failed to encode action items: %w", err)
	}
	deadlines, err := json.Marshal(nonNil(e.Deadlines))
	if err != nil {
		return emailRow{}, fmt.Errorf("failed to encode deadlines: %w", err)
	}

	row := emailRow{
		ID:                e.ID,
		Subject:           e.Subject,
		Sender:            e.Sender,
		Content:           e.Content,
		Category:          string(e.Category),
		Priority:          int(e.Priority),
		Sentiment:         string(e.Sentiment),
		ActionItems:       string(actions),
		Deadlines:         string(deadlines),
		SuggestedResponse: e.SuggestedResponse,
		ProcessedAt:       e.ProcessedAt.UnixMilli(),
	}
	if !e.ReceivedAt.IsZero() {
		row.ReceivedAt = e.ReceivedAt.UnixMilli()
	}
	return row, nil
}

func (r emailRow) toEmail() (*analysis.ProcessedEmail, error) {
	e := &analysis.ProcessedEmail{
		ID:                r.ID,
		Subject:           r.Subject,
		Sender:            r.Sender,
		Content:           r.Content,
		Category:          analysis.Category(r.Category),
		Priority:          analysis.Priority(r.Priority),
		Sentiment:         analysis.Sentiment(r.Sentiment),
		SuggestedResponse: r.SuggestedResponse,
		ProcessedAt:       time.UnixMilli(r.ProcessedAt),
		ActionItems:       []string{},
		Deadlines:         []analysis.Deadline{},
	}
	if r.ReceivedAt != 0 {
		e.ReceivedAt = time.UnixMilli(r.ReceivedAt)
	}
	if err := json.Unmarshal([]byte(r.ActionItems), &e.ActionItems); err != nil {
		return nil, fmt.Errorf("failed to decode action items for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Deadlines), &e.Deadlines); err != nil {
		return nil, fmt.Errorf("failed to decode deadlines for %s: %w", r.ID, err)
	}
	return e, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

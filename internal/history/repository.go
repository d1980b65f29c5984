package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PatrickWalther/wordle-timer-go/internal/database"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
	"github.com/PatrickWalther/wordle-timer-go/internal/util"
)

// Entry is one recorded completion.
type Entry struct {
	ID          string    `json:"id"`
	Day         string    `json:"day"`
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"name"`
	ChannelID   string    `json:"channelId"`
	DurationMs  int64     `json:"durationMs"`
	Formatted   string    `json:"formatted"`
	CompletedAt time.Time `json:"completedAt"`
}

// NewEntry assigns a fresh ID to a completion.
func NewEntry(c puzzle.Completion) Entry {
	return Entry{
		ID:          uuid.NewString(),
		Day:         c.Day,
		UserID:      c.UserID,
		Name:        c.Name,
		ChannelID:   c.ChannelID,
		DurationMs:  c.Duration.Milliseconds(),
		Formatted:   util.FormatDuration(c.Duration),
		CompletedAt: c.CompletedAt.UTC(),
	}
}

func (e Entry) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

type HistoryModule struct{}

func (m *HistoryModule) Name() string {
	return "history"
}

func (m *HistoryModule) Migrations() []database.Migration {
	return []database.Migration{
		{
			Version:     1,
			Description: "Create completions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS completions (
					id TEXT PRIMARY KEY,
					day TEXT NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					name TEXT NOT NULL,
					channel_id TEXT NOT NULL DEFAULT '',
					duration_ms INTEGER NOT NULL,
					completed_at INTEGER NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_completions_day ON completions(day, duration_ms);
				CREATE INDEX IF NOT EXISTS idx_completions_completed_at ON completions(completed_at);
			`,
		},
	}
}

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) (*Repository, error) {
	if err := db.RegisterModule(&HistoryModule{}); err != nil {
		return nil, fmt.Errorf("failed to register history module: %w", err)
	}
	return &Repository{db: db}, nil
}

// Insert stores an entry.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completions (id, day, user_id, name, channel_id, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Day, e.UserID, e.Name, e.ChannelID, e.DurationMs, e.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert completion: %w", err)
	}
	return nil
}

// Record stores a completion under a new ID.
func (r *Repository) Record(ctx context.Context, c puzzle.Completion) (Entry, error) {
	e := NewEntry(c)
	if err := r.Insert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ByDay lists a day's completions, fastest first.
func (r *Repository) ByDay(ctx context.Context, day string) ([]Entry, error) {
	return r.query(ctx, `
		SELECT id, day, user_id, name, channel_id, duration_ms, completed_at
		FROM completions
		WHERE day = ?
		ORDER BY duration_ms ASC, completed_at ASC
	`, day)
}

// Recent lists the latest completions, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.query(ctx, `
		SELECT id, day, user_id, name, channel_id, duration_ms, completed_at
		FROM completions
		ORDER BY completed_at DESC, id ASC
		LIMIT ?
	`, limit)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var completedAt int64
		if err := rows.Scan(&e.ID, &e.Day, &e.UserID, &e.Name, &e.ChannelID, &e.DurationMs, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		e.CompletedAt = time.UnixMilli(completedAt).UTC()
		e.Formatted = util.FormatDuration(e.Duration())
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

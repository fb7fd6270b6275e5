// Package audit keeps an optional history of pairing attempts. The OTP is
// never written.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Attempt struct {
	ID        string
	Label     string
	OK        bool
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pair_attempts (
	id          TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	ok          INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pair_attempts_started_at ON pair_attempts (started_at DESC);
`

func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate pair_attempts: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores a, assigning an ID when it has none.
func (s *Store) Record(ctx context.Context, a Attempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pair_attempts (id, label, ok, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Label, boolToInt(a.OK), a.Error, a.StartedAt.UnixMilli(), a.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return a.ID, nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, ok, error, started_at, duration_ms FROM pair_attempts ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]Attempt, 0, limit)
	for rows.Next() {
		var (
			a          Attempt
			ok         int
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&a.ID, &a.Label, &ok, &a.Error, &startedMs, &durationMs); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.OK = ok == 1
		a.StartedAt = time.UnixMilli(startedMs).UTC()
		a.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

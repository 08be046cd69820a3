// Package audit keeps an append-only SQLite log of delivery decisions. The
// pipeline never reads it; it exists for operators diagnosing who triggered
// what, and why a request was refused.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Log is the delivery audit log. A nil *Log is a valid no-op log, so the
// feature can stay unconfigured.
type Log struct {
	db *sql.DB
}

// Entry is one recorded delivery decision.
type Entry struct {
	DeliveryID string
	Identity   string
	Targets    []string
	Outcome    string // "ok" or a fault code
	Status     int
	Duration   time.Duration
}

// Open opens (and creates if needed) the audit database at path and ensures
// the table exists.
func Open(ctx context.Context, path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("audit path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS delivery_log (
  delivery_id TEXT NOT NULL,
  identity    TEXT NOT NULL DEFAULT '',
  targets     TEXT NOT NULL DEFAULT '',
  outcome     TEXT NOT NULL,
  status      INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL,
  created_at  TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap audit db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS delivery_log_created_at_idx ON delivery_log(created_at);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap audit db: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends one decision. A nil log drops the entry.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if l == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO delivery_log (delivery_id, identity, targets, outcome, status, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.DeliveryID, e.Identity, strings.Join(e.Targets, ","), e.Outcome, e.Status,
		e.Duration.Milliseconds(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

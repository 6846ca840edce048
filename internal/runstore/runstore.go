// Package runstore keeps a small sqlite index of past rca runs so operators
// can find earlier work directories.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one row of the index.
type Run struct {
	ID        string
	CallID    string
	WorkDir   string
	State     string
	Errors    int
	Warnings  int
	Degraded  int
	Summary   string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open creates the database file and its parent directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		call_id    TEXT NOT NULL,
		work_dir   TEXT NOT NULL DEFAULT '',
		state      TEXT NOT NULL,
		errors     INTEGER NOT NULL DEFAULT 0,
		warnings   INTEGER NOT NULL DEFAULT 0,
		degraded   INTEGER NOT NULL DEFAULT 0,
		summary    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_call ON runs(call_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts r, assigning an ID and timestamp when they are empty.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, call_id, work_dir, state, errors, warnings, degraded, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CallID, r.WorkDir, r.State, r.Errors, r.Warnings, r.Degraded, r.Summary,
		r.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return r, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// Recent returns the newest runs first. callID filters when non-empty.
func (s *Store) Recent(ctx context.Context, callID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, call_id, work_dir, state, errors, warnings, degraded, summary, created_at
		FROM runs`
	args := []any{}
	if callID != "" {
		query += " WHERE call_id = ?"
		args = append(args, callID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &r.CallID, &r.WorkDir, &r.State, &r.Errors, &r.Warnings, &r.Degraded, &r.Summary, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

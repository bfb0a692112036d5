package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Delete for an unknown ID.
var ErrNotFound = errors.New("trace: not found")

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	id          TEXT PRIMARY KEY,
	start_url   TEXT NOT NULL,
	status_code INTEGER DEFAULT 0,
	outcome     TEXT NOT NULL,
	redirects   INTEGER DEFAULT 0,
	trace_json  TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traces_start_url ON traces(start_url);
CREATE INDEX IF NOT EXISTS idx_traces_created_at ON traces(created_at);
`

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the database at path. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces t. An empty ID is filled with a new UUID and a
// zero CreatedAt with the current time.
func (s *SQLiteStore) Save(ctx context.Context, t *Trace) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces (id, start_url, status_code, outcome, redirects, trace_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_url   = excluded.start_url,
			status_code = excluded.status_code,
			outcome     = excluded.outcome,
			redirects   = excluded.redirects,
			trace_json  = excluded.trace_json,
			created_at  = excluded.created_at`,
		t.ID, t.StartURL, t.StatusCode, t.Outcome, len(t.Hops), string(data),
		t.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("trace: save %s: %w", t.ID, err)
	}
	return nil
}

// Load returns the most recent trace that started at startURL, or nil.
func (s *SQLiteStore) Load(ctx context.Context, startURL string) (*Trace, error) {
	return s.loadOne(ctx,
		`SELECT trace_json FROM traces WHERE start_url = ? ORDER BY created_at DESC LIMIT 1`,
		startURL)
}

// LoadByID returns the trace with the given ID, or nil.
func (s *SQLiteStore) LoadByID(ctx context.Context, id string) (*Trace, error) {
	return s.loadOne(ctx, `SELECT trace_json FROM traces WHERE id = ?`, id)
}

func (s *SQLiteStore) loadOne(ctx context.Context, query string, args ...any) (*Trace, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trace: query: %w", err)
	}

	var t Trace
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("trace: unmarshal: %w", err)
	}
	return &t, nil
}

// List returns summaries of all traces, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_url, status_code, outcome, redirects, created_at FROM traces ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("trace: list: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		var (
			sum     Summary
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.StartURL, &sum.StatusCode, &sum.Outcome, &sum.Redirects, &created); err != nil {
			return nil, fmt.Errorf("trace: scan summary: %w", err)
		}
		sum.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("trace: parse created_at %q: %w", created, err)
		}
		out = append(out, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: iterate rows: %w", err)
	}
	return out, nil
}

// Delete removes the trace with the given ID. It returns ErrNotFound when
// there is none.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("trace: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("trace: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Cleanup removes traces created more than maxAge ago and returns how many
// were deleted.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("trace: cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trace: rows affected: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

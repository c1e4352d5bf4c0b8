package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vk/bogflow/internal/bog"

	_ "modernc.org/sqlite"
)

const createLedgerTable = `
CREATE TABLE IF NOT EXISTS ledger (
    handle_id      TEXT PRIMARY KEY,
    run_id         TEXT NOT NULL,
    parent_id      TEXT,
    work           TEXT NOT NULL,
    state          TEXT NOT NULL,
    error          TEXT,
    failed_service TEXT,
    outputs        BLOB,
    submitted_at   DATETIME NOT NULL,
    finished_at    DATETIME NOT NULL
)`

const createLedgerRunIndex = `CREATE INDEX IF NOT EXISTS ledger_run_id ON ledger (run_id)`

const selectEntry = `SELECT handle_id, run_id, parent_id, work, state, error,
	failed_service, outputs, submitted_at, finished_at FROM ledger`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// PRAGMAs are per connection; one connection also serialises writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []struct{ what, sql string }{
		{"set WAL mode", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", "PRAGMA busy_timeout = 5000"},
		{"create ledger table", createLedgerTable},
		{"create ledger index", createLedgerRunIndex},
	} {
		if _, err := db.Exec(stmt.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt.what, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts an entry. Saving the same handle twice replaces the first
// entry.
func (s *SQLiteStore) Save(ctx context.Context, e *Entry) error {
	outputs, err := bog.Encode(e.Outputs)
	if err != nil {
		return fmt.Errorf("encode outputs of handle %s: %w", e.HandleID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ledger (
			handle_id, run_id, parent_id, work, state, error,
			failed_service, outputs, submitted_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HandleID, e.RunID, e.ParentID, e.Work, e.State, e.Error,
		e.FailedService, outputs, e.SubmittedAt.UTC(), e.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Get retrieves the entry of a handle.
func (s *SQLiteStore) Get(ctx context.Context, handleID string) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE handle_id = ?`, handleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// ListRun returns every entry of runID in insertion order.
func (s *SQLiteStore) ListRun(ctx context.Context, runID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                       Entry
		parent, errText, failed sql.NullString
		outputs                 []byte
	)
	err := row.Scan(
		&e.HandleID, &e.RunID, &parent, &e.Work, &e.State, &errText,
		&failed, &outputs, &e.SubmittedAt, &e.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ParentID, e.Error, e.FailedService = parent.String, errText.String, failed.String
	if len(outputs) > 0 {
		if e.Outputs, err = bog.Decode(outputs); err != nil {
			return nil, fmt.Errorf("decode outputs of handle %s: %w", e.HandleID, err)
		}
	}
	return &e, nil
}

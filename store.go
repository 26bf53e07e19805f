package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"Sift/pkg/types"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// ========================================
// HistoryStore - SQLite run history
// ========================================

type HistoryStore struct {
	db     *sql.DB
	dbPath string
}

const historySchemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    format TEXT NOT NULL,
    mode TEXT NOT NULL,
    candidates INTEGER NOT NULL DEFAULT 0,
    bytes INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, created_at DESC);

CREATE TABLE IF NOT EXISTS run_strings (
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    text TEXT NOT NULL,
    PRIMARY KEY (run_id, seq),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// OpenHistoryStore opens or creates the database at dbPath.
func OpenHistoryStore(dbPath string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &HistoryStore{db: db, dbPath: dbPath}
	if _, err := db.Exec(historySchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	LogDebug("store").Str("path", dbPath).Msg("history store opened")
	return store, nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// SaveRun stores r and its strings. An empty ID is filled with a new UUID and
// a zero CreatedAt with the current time; both are written back to r.
func (s *HistoryStore) SaveRun(ctx context.Context, r *types.Result) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, format, mode, candidates, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Source, r.Format, r.Mode, r.Candidates, r.Bytes, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_strings (run_id, seq, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, text := range r.Strings {
		if _, err := stmt.ExecContext(ctx, r.ID, i, text); err != nil {
			return fmt.Errorf("failed to insert string %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error) {
	query := `
		SELECT r.id, r.source, r.format, r.mode, r.candidates, r.bytes, r.created_at,
			(SELECT COUNT(*) FROM run_strings rs WHERE rs.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.rowid DESC
	`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []types.RunSummary{}
	for rows.Next() {
		var rs types.RunSummary
		if err := rows.Scan(&rs.ID, &rs.Source, &rs.Format, &rs.Mode,
			&rs.Candidates, &rs.Bytes, &rs.CreatedAt, &rs.Count); err != nil {
			return nil, err
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// GetRun loads a run and its strings in order.
func (s *HistoryStore) GetRun(ctx context.Context, id string) (*types.Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, format, mode, candidates, bytes, created_at
		FROM runs WHERE id = ?
	`, id)
	return s.scanRun(ctx, row)
}

// LatestRun returns the newest run for source, or for any source when source
// is empty.
func (s *HistoryStore) LatestRun(ctx context.Context, source string) (*types.Result, error) {
	query := `SELECT id, source, format, mode, candidates, bytes, created_at FROM runs`
	var args []interface{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT 1`

	return s.scanRun(ctx, s.db.QueryRowContext(ctx, query, args...))
}

func (s *HistoryStore) scanRun(ctx context.Context, row *sql.Row) (*types.Result, error) {
	var r types.Result
	err := row.Scan(&r.ID, &r.Source, &r.Format, &r.Mode, &r.Candidates, &r.Bytes, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	strs, err := s.runStrings(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Strings = strs
	return &r, nil
}

func (s *HistoryStore) runStrings(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM run_strings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load strings: %w", err)
	}
	defer rows.Close()

	strs := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		strs = append(strs, text)
	}
	return strs, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run progress in a single-file database. Zero-setup
// persistence for single-host propagation campaigns; WAL mode keeps reads
// concurrent with the writer.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at path.
// Use ":memory:" for an in-memory database that vanishes on Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS propagation_progress (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_name      TEXT NOT NULL,
			workdir       TEXT NOT NULL,
			segment       INTEGER NOT NULL,
			steps_done    INTEGER NOT NULL,
			status        TEXT NOT NULL,
			condition_idx INTEGER NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_progress_run
			ON propagation_progress(run_name, id);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create tables: %w", err)
	}
	return nil
}

// SaveProgress appends the record.
func (s *SQLiteStore) SaveProgress(ctx context.Context, rec RunRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO propagation_progress
			(run_name, workdir, segment, steps_done, status, condition_idx, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, rec.RunName, rec.Workdir, rec.Segment,
		rec.StepsDone, rec.Status, rec.Condition, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save progress for %s: %w", rec.RunName, err)
	}
	return nil
}

// LoadLatest returns the most recent record of the run.
func (s *SQLiteStore) LoadLatest(ctx context.Context, runName string) (RunRecord, error) {
	const q = `
		SELECT run_name, workdir, segment, steps_done, status, condition_idx, updated_at
		FROM propagation_progress
		WHERE run_name = ?
		ORDER BY id DESC
		LIMIT 1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, runName))
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("store: load latest for %s: %w", runName, err)
	}
	return rec, nil
}

// History returns all records of the run in save order.
func (s *SQLiteStore) History(ctx context.Context, runName string) ([]RunRecord, error) {
	const q = `
		SELECT run_name, workdir, segment, steps_done, status, condition_idx, updated_at
		FROM propagation_progress
		WHERE run_name = ?
		ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, runName)
	if err != nil {
		return nil, fmt.Errorf("store: history for %s: %w", runName, err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: history for %s: %w", runName, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: history for %s: %w", runName, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(&rec.RunName, &rec.Workdir, &rec.Segment, &rec.StepsDone,
		&rec.Status, &rec.Condition, &rec.UpdatedAt)
	return rec, err
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore persists run progress in MySQL/MariaDB, for campaigns whose
// workers run on many hosts against one ledger.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore opens a MySQL-backed store. The DSN must include
// parseTime=true so timestamps scan back as time.Time:
//
//	user:pass@tcp(localhost:3306)/asyncmd?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS propagation_progress (
			id            BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_name      VARCHAR(255) NOT NULL,
			workdir       TEXT NOT NULL,
			segment       INT NOT NULL,
			steps_done    BIGINT NOT NULL,
			status        VARCHAR(32) NOT NULL,
			condition_idx INT NOT NULL,
			updated_at    DATETIME(6) NOT NULL,
			INDEX idx_progress_run (run_name, id)
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create tables: %w", err)
	}
	return nil
}

// SaveProgress appends the record.
func (s *MySQLStore) SaveProgress(ctx context.Context, rec RunRecord) error {
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
func (s *MySQLStore) LoadLatest(ctx context.Context, runName string) (RunRecord, error) {
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
func (s *MySQLStore) History(ctx context.Context, runName string) ([]RunRecord, error) {
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

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

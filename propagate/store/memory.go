package store

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests, development, and short-lived
// processes. Records are lost when the process exits.
type MemStore struct {
	mu   sync.RWMutex
	runs map[string][]RunRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string][]RunRecord)}
}

// SaveProgress appends the record to the run's history.
func (m *MemStore) SaveProgress(_ context.Context, rec RunRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.RunName] = append(m.runs[rec.RunName], rec)
	return nil
}

// LoadLatest returns the last saved record of the run.
func (m *MemStore) LoadLatest(_ context.Context, runName string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.runs[runName]
	if len(recs) == 0 {
		return RunRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

// History returns a copy of the run's records in save order.
func (m *MemStore) History(_ context.Context, runName string) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.runs[runName]
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	out := make([]RunRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Close is a no-op.
func (m *MemStore) Close() error { return nil }

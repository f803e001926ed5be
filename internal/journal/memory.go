package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryJournal keeps records in a map. Suitable for tests and hosts that
// accept losing duplicate-submit protection across restarts.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{records: make(map[string]Record)}
}

func (j *MemoryJournal) Lookup(_ context.Context, idempotencyKey string) (*Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[idempotencyKey]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &rec, nil
}

func (j *MemoryJournal) Store(_ context.Context, rec *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	stored := *rec
	now := time.Now()
	if existing, ok := j.records[rec.IdempotencyKey]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	j.records[rec.IdempotencyKey] = stored
	return nil
}

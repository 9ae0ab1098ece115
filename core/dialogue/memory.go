package dialogue

import (
	"context"
	"sync"
)

// InMemStorage keeps dialogue records in a process-local map. Suitable for
// tests and development; state does not survive a restart.
type InMemStorage struct {
	mu      sync.RWMutex
	records map[int64]Record
}

// NewInMemStorage constructs an empty in-memory storage.
func NewInMemStorage() *InMemStorage {
	return &InMemStorage{records: make(map[int64]Record)}
}

// Get returns a copy of the record for key, or nil if none exists.
func (s *InMemStorage) Get(_ context.Context, key int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &Record{Data: cloneBytes(rec.Data), Format: rec.Format}, nil
}

// Update upserts the record for key.
func (s *InMemStorage) Update(_ context.Context, key int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = Record{Data: cloneBytes(rec.Data), Format: rec.Format}
	return nil
}

// Remove deletes the record for key if present.
func (s *InMemStorage) Remove(_ context.Context, key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Close releases nothing; it exists to satisfy Storage.
func (s *InMemStorage) Close() error { return nil }

// Len reports the number of stored records, for tests and diagnostics.
func (s *InMemStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records are copied on the way in and out so callers can never alias the
// map's backing slices.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

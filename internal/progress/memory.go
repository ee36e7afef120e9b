package progress

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store with the same semantics as the Redis
// implementation. Used by tests and available wherever a process-local
// store is enough.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory progress store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create implements Store
func (s *MemoryStore) Create(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[jobID]; ok {
		return ErrDuplicateJob
	}
	s.records[jobID] = &Record{JobID: jobID, Status: StatusQueued}
	return nil
}

// Update implements Store
func (s *MemoryStore) Update(ctx context.Context, jobID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[jobID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(rec.Status) {
		return ErrInvalidTransition
	}

	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Processed != nil && *patch.Processed > rec.Processed {
		rec.Processed = *patch.Processed
	}
	if patch.Total != nil {
		rec.Total = *patch.Total
	}
	if patch.Reason != nil {
		rec.Reason = *patch.Reason
	}
	return nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[jobID]
	if !ok {
		return nil, ErrNotFound
	}

	out := *rec
	out.Percent = percent(rec.Processed, rec.Total)
	return &out, nil
}

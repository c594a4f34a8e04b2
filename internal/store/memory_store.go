package store

import (
	"context"
	"sync"
)

// MemoryStatusStore keeps status records in process. Records never expire.
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]JobStatus
}

// NewMemoryStatusStore creates an empty in-process store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[string]JobStatus)}
}

// SetStatus stores status, replacing any earlier record of the job.
func (s *MemoryStatusStore) SetStatus(_ context.Context, status JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.JobID] = status
	return nil
}

// GetStatus returns the record of jobID.
func (s *MemoryStatusStore) GetStatus(_ context.Context, jobID string) (JobStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[jobID]
	return status, ok, nil
}

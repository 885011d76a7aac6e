// Package repository persists team records in the flat row layout.
package repository

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

// Store saves and loads the record rows of a matching run.
type Store interface {
	// Save stores rows under runID, replacing any previous rows.
	Save(ctx context.Context, runID string, rows []Row) error

	// Load returns the rows of runID or ErrNotFound.
	Load(ctx context.Context, runID string) ([]Row, error)

	// Delete removes runID. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error
}

// MemoryStore keeps rows in process memory.
type MemoryStore struct {
	runs *xsync.Map[string, []Row]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: xsync.NewMap[string, []Row]()}
}

func (s *MemoryStore) Save(_ context.Context, runID string, rows []Row) error {
	s.runs.Store(runID, append([]Row(nil), rows...))
	return nil
}

func (s *MemoryStore) Load(_ context.Context, runID string) ([]Row, error) {
	rows, ok := s.runs.Load(runID)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Row(nil), rows...), nil
}

func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.runs.Delete(runID)
	return nil
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	return s.runs.Size()
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/meeting-finder/internal/persistence"
)

// Storage keeps case records in process memory.
type Storage struct {
	mu    sync.RWMutex
	cases map[string]persistence.Case
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{cases: make(map[string]persistence.Case)}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// ListCases returns all cases ordered by CreatedAt ascending.
func (s *Storage) ListCases(ctx context.Context) ([]persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cases := make([]persistence.Case, 0, len(s.cases))
	for _, c := range s.cases {
		cases = append(cases, c.Clone())
	}
	sort.Slice(cases, func(i, j int) bool {
		if cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].ID < cases[j].ID
		}
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
	return cases, nil
}

// GetCase retrieves a case by ID.
func (s *Storage) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return persistence.Case{}, persistence.ErrNotFound
	}
	return c.Clone(), nil
}

// PutCase inserts or replaces a case.
func (s *Storage) PutCase(ctx context.Context, c persistence.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cases[c.ID] = c.Clone()
	return nil
}

// DeleteCase removes a case by ID.
func (s *Storage) DeleteCase(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

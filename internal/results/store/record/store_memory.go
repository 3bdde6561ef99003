package record

import (
	"context"
	"sync"

	"zgjedhjet/internal/results/models"
)

// InMemoryStore keeps records in process memory. Used when no database is
// configured and in service tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.ElectionRecord
	nextID  int64
}

// NewInMemory constructs an empty in-memory record store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) BulkInsert(_ context.Context, records []models.ElectionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		r.ID = s.nextID
		s.nextID++
		s.records = append(s.records, r)
	}
	return len(records), nil
}

func (s *InMemoryStore) Query(_ context.Context, filter models.Filter) ([]models.ElectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ElectionRecord
	for i := range s.records {
		if filter.Matches(&s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) Exists(_ context.Context, field models.Field, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if field.Value(&s.records[i]) == value {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

package counter

import (
	"context"
	"sort"
	"sync"

	"zgjedhjet/internal/results/models"
)

// InMemoryStore keeps suggestion counts in process memory with the same
// ordering as the Redis sorted set.
type InMemoryStore struct {
	mu     sync.Mutex
	scores map[string]float64
}

// NewInMemory constructs an empty in-memory counter store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{scores: make(map[string]float64)}
}

func (s *InMemoryStore) Increment(_ context.Context, member string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[member] += delta
	return s.scores[member], nil
}

func (s *InMemoryStore) TopN(_ context.Context, n int) ([]models.SuggestionCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SuggestionCount, 0, len(s.scores))
	for m, score := range s.scores {
		out = append(out, models.SuggestionCount{Municipality: m, Count: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Municipality > out[j].Municipality
	})
	if n < 0 {
		n = 0
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

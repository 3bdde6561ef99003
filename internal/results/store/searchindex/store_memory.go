package searchindex

import (
	"context"
	"sort"
	"sync"

	"zgjedhjet/internal/results/models"
)

// InMemoryStore emulates the search index in process memory. Used when no
// Elasticsearch cluster is configured and in service tests.
type InMemoryStore struct {
	mu           sync.RWMutex
	exists       bool
	mapping      models.IndexMapping
	docs         map[int64]models.IndexDocument
	searchWindow int
}

// NewInMemory constructs an in-memory index with no index created yet.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[int64]models.IndexDocument), searchWindow: DefaultSearchWindow}
}

// SetSearchWindow bounds the hits returned by Query.
func (s *InMemoryStore) SetSearchWindow(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchWindow = n
}

func (s *InMemoryStore) IndexExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists, nil
}

func (s *InMemoryStore) CreateIndex(_ context.Context, mapping models.IndexMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		s.exists = true
		s.mapping = mapping
	}
	return nil
}

// Mapping returns the mapping the index was created with.
func (s *InMemoryStore) Mapping() models.IndexMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping
}

func (s *InMemoryStore) BulkIndex(_ context.Context, docs []models.IndexDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// indexing into a missing index creates it with dynamic mapping
	s.exists = true
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter models.Filter) ([]models.ElectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ElectionRecord
	for _, id := range s.sortedIDs() {
		r := s.docs[id].Record()
		if filter.Matches(&r) {
			out = append(out, r)
			if len(out) == s.searchWindow {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) Exists(_ context.Context, field models.Field, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs {
		r := d.Record()
		if field.Value(&r) == value {
			return true, nil
		}
	}
	return false, nil
}

// MunicipalityBuckets orders buckets by descending count then ascending key,
// the default terms aggregation order.
func (s *InMemoryStore) MunicipalityBuckets(_ context.Context, prefix string, size int) ([]models.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, d := range s.docs {
		if matchPhrasePrefix(d.Municipality, prefix) {
			counts[d.Municipality]++
		}
	}

	out := make([]models.Bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.Bucket{Key: k, DocCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocCount != out[j].DocCount {
			return out[i].DocCount > out[j].DocCount
		}
		return out[i].Key < out[j].Key
	})
	if size >= 0 && len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// Len returns the number of indexed documents.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *InMemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"zgjedhjet/internal/results/models"
)

// DefaultKey is the sorted set holding municipality suggestion counts.
const DefaultKey = "municipality:suggestions"

// RedisStore counts suggestions in a Redis sorted set: member is the
// municipality name, score the number of times it was suggested.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKey overrides the sorted set key.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedis constructs a Redis-backed counter store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Increment adds delta to the member score and returns the new score.
func (s *RedisStore) Increment(ctx context.Context, member string, delta float64) (float64, error) {
	score, err := s.client.ZIncrBy(ctx, s.key, delta, member).Result()
	if err != nil {
		return 0, fmt.Errorf("increment suggestion count: %w", err)
	}
	return score, nil
}

// TopN returns up to n members by descending score. Equal scores follow
// reverse lexicographic member order, as ZREVRANGE does.
func (s *RedisStore) TopN(ctx context.Context, n int) ([]models.SuggestionCount, error) {
	if n <= 0 {
		return []models.SuggestionCount{}, nil
	}
	entries, err := s.client.ZRevRangeWithScores(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read suggestion counts: %w", err)
	}
	out := make([]models.SuggestionCount, 0, len(entries))
	for _, z := range entries {
		member, ok := z.Member.(string)
		if !ok {
			member = fmt.Sprint(z.Member)
		}
		out = append(out, models.SuggestionCount{Municipality: member, Count: z.Score})
	}
	return out, nil
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store as a Redis sorted set per key: members
// are unique hit ids scored by their Unix-nano timestamp, pruned below
// the window cutoff on every Record call.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a redis client. prefix namespaces keys, e.g.
// "ratelimit:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Record(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	fullKey := s.prefix + key
	cutoff := now.Add(-window).UnixNano()
	member := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, fullKey, window)
	card := pipe.ZCard(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit.RedisStore.Record: %w", err)
	}
	return int(card.Val()), nil
}

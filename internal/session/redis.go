package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token slot in Redis. Meant for shared or daemon
// deployments where several processes act as one installation; the file
// store remains the default for a single machine.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: Key}
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: redis get: %w", err)
	}
	if val == "" {
		return "", ErrNoSession
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, token string) error {
	// No TTL: the slot lives until Clear, matching the durable-storage
	// contract of the file store.
	if err := s.rdb.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

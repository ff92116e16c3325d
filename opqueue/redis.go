package opqueue

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultHashKey is the Redis hash holding all pending operations.
const DefaultHashKey = "pending_operations"

// RedisStore persists operations in a Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Store backed by the given Redis client. An empty
// hashKey falls back to DefaultHashKey.
func NewRedisStore(client *redis.Client, hashKey string) *RedisStore {
	if hashKey == "" {
		hashKey = DefaultHashKey
	}
	return &RedisStore{client: client, key: hashKey}
}

func (s *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	return s.client.HSet(ctx, s.key, id, data).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	val, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (s *RedisStore) All(ctx context.Context) (map[string][]byte, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(vals))
	for id, val := range vals {
		out[id] = []byte(val)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document under its own Redis string key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage/redis: load %s: %w", key, err)
	}
	return body, nil
}

// Save implements Store. The batch is sent as one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, docs ...Document) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, doc := range docs {
			pipe.Set(ctx, doc.Key, doc.Body, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage/redis: save: %w", err)
	}
	return nil
}

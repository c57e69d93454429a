package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const notificationsDeadLetterKey = "shareit:notifications:dead"

// RedisDeadLetterStore keeps notifications that exhausted their retries.
type RedisDeadLetterStore struct {
	client *redis.Client
	key    string
	max    int64
}

func NewRedisDeadLetterStore(client *redis.Client, max int64) *RedisDeadLetterStore {
	if max <= 0 {
		max = 1000
	}
	return &RedisDeadLetterStore{client: client, key: notificationsDeadLetterKey, max: max}
}

// Push stores payload as JSON at the head of the list and trims it to the size limit.
func (s *RedisDeadLetterStore) Push(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push dead letter: %w", err)
	}
	return nil
}

// List returns up to n stored payloads, newest first.
func (s *RedisDeadLetterStore) List(ctx context.Context, n int64) ([]string, error) {
	items, err := s.client.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}
	return items, nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix = "reorder"

	dedupePending = "pending"
	dedupeDone    = "done"
)

// Deduper remembers Idempotency-Key values so a retried move is applied
// once across all instances.
type Deduper interface {
	Add(ctx context.Context, userID, key string) (bool, error)
	State(ctx context.Context, userID, key string) (string, error)
	Complete(ctx context.Context, userID, key string) error
	Remove(ctx context.Context, userID, key string) error
}

// RedisDeduper stores idempotency keys in Redis.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, key string) string {
	return fmt.Sprintf("%s:%s:%s", userID, dedupeKeyPrefix, key)
}

// Add records the key as pending if it does not already exist. It returns
// true when the key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, userID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, key), dedupePending, r.ttl).Result()
}

// State returns "pending", "done" or "" for an unknown key.
func (r *RedisDeduper) State(ctx context.Context, userID, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Complete marks a pending key as processed.
func (r *RedisDeduper) Complete(ctx context.Context, userID, key string) error {
	return r.client.SetXX(ctx, r.key(userID, key), dedupeDone, r.ttl).Err()
}

// Remove deletes a previously recorded key. It is used when processing
// fails so the caller may retry.
func (r *RedisDeduper) Remove(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, r.key(userID, key)).Err()
}

package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:     client,
		ttl:        ttl,
		pendingTTL: time.Minute,
	}
}

type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func (r RedisStore) Reserve(ctx context.Context, key string) (string, error) {
	ok, err := r.client.SetNX(ctx, storeKey(key), pendingMarker, r.pendingTTL).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return "", nil
	}

	existing, err := r.Lookup(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		// reservation expired between the two calls
		return "", ErrInProgress
	}
	if err != nil {
		return "", err
	}
	if existing == "" {
		return "", ErrInProgress
	}
	return existing, nil
}

func (r RedisStore) Complete(ctx context.Context, key, orderID string) error {
	if err := r.client.Set(ctx, storeKey(key), orderID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Lookup returns "" with a nil error while the key is reserved but not completed.
func (r RedisStore) Lookup(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, storeKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if value == pendingMarker {
		return "", nil
	}
	return value, nil
}

func (r RedisStore) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, storeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func storeKey(key string) string {
	return fmt.Sprintf("order-idempotency:%s", key)
}

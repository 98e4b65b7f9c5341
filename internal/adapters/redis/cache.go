package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

type Cache struct{ c *redis.Client }

// NewFromClient shares an existing client (one pool for Cache and Store).
func NewFromClient(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis cache: marshal %s: %w", key, err)
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, ttl).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// Store is the durable KV variant: no expiry, keys namespaced by prefix.
type Store struct {
	c      *redis.Client
	prefix string
}

func NewStore(c *redis.Client, prefix string) *Store {
	return &Store{c: c, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis store %s: %w", key, domain.ErrNotFound)
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	return s.c.Set(ctx, s.prefix+key, blob, 0).Err()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.c.Del(ctx, s.prefix+key).Err()
}

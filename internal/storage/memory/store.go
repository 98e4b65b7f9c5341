// Package memory holds process-local KVStore and Cache implementations,
// used for STORE_BACKEND=memory and in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"review_dashboard/internal/domain"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewStore() *Store { return &Store{data: map[string][]byte{}} }

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("memory store %s: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) Set(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), blob...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

type cacheItem struct {
	blob      []byte
	expiresAt time.Time
}

// Cache stores JSON like the redis adapter does, so values round-trip the
// same way regardless of backend.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewCache() *Cache { return NewCacheWithClock(time.Now) }

func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{items: map[string]cacheItem{}, now: now}
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(it.blob, dst)
}

func (c *Cache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memory cache: marshal %s: %w", key, err)
	}
	it := cacheItem{blob: b}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

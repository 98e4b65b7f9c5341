package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

const (
	analysisCacheKey   = "property-analysis-cache"
	DefaultAnalysisTTL = 24 * time.Hour
)

// AnalysisCache keeps analyses per property name with a fixed lifetime.
// Expiry is checked lazily on read; the map is persisted whole on each write.
type AnalysisCache struct {
	kv  domain.KVStore
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]domain.AnalysisCacheEntry
}

// NewAnalysisCache loads the persisted cache; corrupt or missing data means an
// empty cache. now may be nil (time.Now).
func NewAnalysisCache(ctx context.Context, kv domain.KVStore, ttl time.Duration, now func() time.Time) *AnalysisCache {
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}
	if now == nil {
		now = time.Now
	}
	c := &AnalysisCache{kv: kv, ttl: ttl, now: now, entries: map[string]domain.AnalysisCacheEntry{}}
	c.load(ctx)
	return c
}

func (c *AnalysisCache) load(ctx context.Context) {
	blob, err := c.kv.Get(ctx, analysisCacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("load analysis cache failed, starting empty")
		}
		return
	}
	var stored map[string]domain.AnalysisCacheEntry
	if err := json.Unmarshal(blob, &stored); err != nil {
		log.Error().Err(err).Msg("analysis cache corrupt, starting empty")
		return
	}
	now := c.now()
	expired := 0
	for name, e := range stored {
		if !now.Before(e.ExpiresAt) {
			expired++
			continue
		}
		c.entries[name] = e
	}
	log.Info().Int("entries", len(c.entries)).Int("expired", expired).Msg("analysis cache loaded")
	if expired > 0 {
		c.mu.Lock()
		c.persistLocked(ctx)
		c.mu.Unlock()
	}
}

// lookupLocked returns a live entry, dropping an expired one.
func (c *AnalysisCache) lookupLocked(name string) (domain.AnalysisCacheEntry, bool) {
	e, ok := c.entries[name]
	if !ok {
		return e, false
	}
	if !c.now().Before(e.ExpiresAt) {
		delete(c.entries, name)
		return e, false
	}
	return e, true
}

func (c *AnalysisCache) Get(name string) (domain.PropertyAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookupLocked(name)
	if !ok {
		observability.ObserveCache("analysis", "miss")
		return domain.PropertyAnalysis{}, false
	}
	observability.ObserveCache("analysis", "hit")
	return e.Analysis, true
}

func (c *AnalysisCache) IsCached(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookupLocked(name)
	return ok
}

// Age reports how long ago a live entry was cached.
func (c *AnalysisCache) Age(name string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookupLocked(name)
	if !ok {
		return 0, false
	}
	return c.now().Sub(e.CachedAt), true
}

func (c *AnalysisCache) Set(ctx context.Context, name string, a domain.PropertyAnalysis) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = domain.AnalysisCacheEntry{Analysis: a, CachedAt: now, ExpiresAt: now.Add(c.ttl)}
	observability.ObserveCache("analysis", "set")
	c.persistLocked(ctx)
}

// Clear drops every entry, expired or not.
func (c *AnalysisCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = map[string]domain.AnalysisCacheEntry{}
	if err := c.kv.Remove(ctx, analysisCacheKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Msg("remove persisted analysis cache failed")
	}
	observability.ObserveCache("analysis", "del")
	log.Info().Int("removed", n).Msg("analysis cache cleared")
}

// Persistence failures keep the in-memory entry; the next write retries.
func (c *AnalysisCache) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(c.entries)
	if err == nil {
		err = c.kv.Set(ctx, analysisCacheKey, blob)
	}
	if err != nil {
		log.Error().Err(err).Msg("persist analysis cache failed")
	}
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

// FallbackPolicy decides what a failed live fetch turns into.
type FallbackPolicy int

const (
	// Reject surfaces the live error.
	Reject FallbackPolicy = iota
	// ServeStale returns an expired entry when one exists.
	ServeStale
	// Fixture serves a stale entry, else the static fixture.
	Fixture
)

// staleRetention bounds how long an expired entry stays around for fallback.
const staleRetention = 7 * 24 * time.Hour

type envelope[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fetcher is the cache-then-fetch-then-fallback path shared by every
// upstream collaborator.
type Fetcher[T any] struct {
	cache   domain.Cache
	ttl     time.Duration
	policy  FallbackPolicy
	fixture func() (T, error)
	now     func() time.Time
}

func NewFetcher[T any](cache domain.Cache, ttl time.Duration, policy FallbackPolicy, fixture func() (T, error)) *Fetcher[T] {
	return &Fetcher[T]{cache: cache, ttl: ttl, policy: policy, fixture: fixture, now: time.Now}
}

func (f *Fetcher[T]) Fetch(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, domain.Provenance, error) {
	var zero T
	var env envelope[T]
	cached, err := f.cache.Get(ctx, key, &env)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		cached = false
	}
	if cached && f.now().Sub(env.FetchedAt) < f.ttl {
		return env.Value, domain.ProvenanceCached, nil
	}

	v, ferr := fetch(ctx)
	if ferr == nil {
		fresh := envelope[T]{Value: v, FetchedAt: f.now()}
		if err := f.cache.Set(ctx, key, fresh, f.ttl+staleRetention); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return v, domain.ProvenanceLive, nil
	}

	log.Warn().Err(ferr).Str("key", key).Msg("live fetch failed")
	switch f.policy {
	case ServeStale, Fixture:
		if cached {
			return env.Value, domain.ProvenanceCachedFallback, nil
		}
		if f.policy == Fixture && f.fixture != nil {
			fx, err := f.fixture()
			if err != nil {
				return zero, "", fmt.Errorf("fixture after %v: %w", ferr, err)
			}
			return fx, domain.ProvenanceFallback, nil
		}
	}
	return zero, "", ferr
}

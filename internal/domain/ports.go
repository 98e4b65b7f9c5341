package domain

import (
	"context"
	"time"
)

// KVStore is the durable blob store behind moderation decisions and the
// analysis cache. Get returns ErrNotFound for a missing key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte) error
	Remove(ctx context.Context, key string) error
}

// Cache is a TTL'd JSON cache used by the cached-fetch paths.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type ReviewSource interface {
	FetchReviews(ctx context.Context) (RawReviewResponse, error)
}

type AnalysisClient interface {
	AnalyzeProperty(ctx context.Context, propertyName string, reviews []Review) (AnalysisResponse, error)
}

type PlacesClient interface {
	PlaceReviews(ctx context.Context, placeID string) (PlaceReviews, error)
	SearchPlace(ctx context.Context, query string) (PlaceSearch, error)
}

// DecisionLog records moderation changes. Optional; last-write-wins state
// lives in the KVStore regardless.
type DecisionLog interface {
	LogDecision(ctx context.Context, ev DecisionEvent) error
}

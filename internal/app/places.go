package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"review_dashboard/internal/domain"
)

// PlacesService serves secondary reviews and place lookups, falling back to
// the last good copy.
type PlacesService struct {
	client   domain.PlacesClient
	details  *Fetcher[domain.PlaceReviews]
	searches *Fetcher[domain.PlaceSearch]
}

func NewPlacesService(client domain.PlacesClient, cache domain.Cache, ttl time.Duration) *PlacesService {
	return &PlacesService{
		client:   client,
		details:  NewFetcher[domain.PlaceReviews](cache, ttl, ServeStale, nil),
		searches: NewFetcher[domain.PlaceSearch](cache, ttl, ServeStale, nil),
	}
}

func (s *PlacesService) Reviews(ctx context.Context, placeID string) (domain.PlaceReviews, domain.Provenance, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return domain.PlaceReviews{}, "", fmt.Errorf("placeID is required: %w", domain.ErrInvalidInput)
	}
	if s.client == nil {
		return domain.PlaceReviews{}, "", fmt.Errorf("places client: %w", domain.ErrNotConfigured)
	}
	return s.details.Fetch(ctx, "places:details:"+placeID, func(ctx context.Context) (domain.PlaceReviews, error) {
		return s.client.PlaceReviews(ctx, placeID)
	})
}

// Search resolves a free-text query (typically a listing name) to place IDs.
// Queries differing only in case or surrounding space share a cache entry.
func (s *PlacesService) Search(ctx context.Context, query string) (domain.PlaceSearch, domain.Provenance, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.PlaceSearch{}, "", fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if s.client == nil {
		return domain.PlaceSearch{}, "", fmt.Errorf("places client: %w", domain.ErrNotConfigured)
	}
	return s.searches.Fetch(ctx, "places:search:"+strings.ToLower(query), func(ctx context.Context) (domain.PlaceSearch, error) {
		return s.client.SearchPlace(ctx, query)
	})
}

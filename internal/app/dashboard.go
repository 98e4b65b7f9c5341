package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"review_dashboard/internal/domain"
)

const reviewsCacheKey = "reviews:hostaway"

// DashboardService is the read/moderate side of the dashboard: fetch,
// normalize, reapply decisions, aggregate, filter.
type DashboardService struct {
	source     domain.ReviewSource // nil: serve the fixture as mock data
	fixture    func() (domain.RawReviewResponse, error)
	fetcher    *Fetcher[domain.RawReviewResponse]
	moderation *ModerationStore
	group      singleflight.Group
	now        func() time.Time
}

func NewDashboardService(src domain.ReviewSource, cache domain.Cache, ttl time.Duration,
	fixture func() (domain.RawReviewResponse, error), mod *ModerationStore) *DashboardService {
	return &DashboardService{
		source:     src,
		fixture:    fixture,
		fetcher:    NewFetcher(cache, ttl, Fixture, fixture),
		moderation: mod,
		now:        time.Now,
	}
}

type reviewBatch struct {
	reviews    []domain.Review
	provenance domain.Provenance
}

// Reviews returns canonical reviews with moderation applied, plus where the
// data came from. Concurrent callers share one upstream fetch.
func (s *DashboardService) Reviews(ctx context.Context) ([]domain.Review, domain.Provenance, error) {
	v, err, shared := s.group.Do(reviewsCacheKey, func() (any, error) {
		raw, prov, err := s.fetchRaw(ctx)
		if err != nil {
			return nil, err
		}
		return reviewBatch{reviews: NormalizeAll(raw.Result), provenance: prov}, nil
	})
	if err != nil {
		return nil, "", err
	}
	b := v.(reviewBatch)
	if shared {
		log.Debug().Msg("reviews fetch shared with concurrent caller")
	}
	return s.moderation.ApplyDecisions(b.reviews), b.provenance, nil
}

func (s *DashboardService) fetchRaw(ctx context.Context) (domain.RawReviewResponse, domain.Provenance, error) {
	if s.source == nil {
		raw, err := s.fixture()
		return raw, domain.ProvenanceMock, err
	}
	return s.fetcher.Fetch(ctx, reviewsCacheKey, s.source.FetchReviews)
}

func (s *DashboardService) Properties(ctx context.Context, c domain.FilterCriteria) ([]domain.PropertyStatistics, domain.Provenance, error) {
	reviews, prov, err := s.Reviews(ctx)
	if err != nil {
		return nil, "", err
	}
	return Filter(Aggregate(reviews), c, s.now()), prov, nil
}

// Moderate records a decision and returns the affected property's statistics,
// rebuilt from scratch.
func (s *DashboardService) Moderate(ctx context.Context, reviewID int64, d domain.Decision) (domain.PropertyStatistics, error) {
	reviews, _, err := s.Reviews(ctx)
	if err != nil {
		return domain.PropertyStatistics{}, err
	}
	listing, found := "", false
	for _, r := range reviews {
		if r.ID == reviewID {
			listing, found = r.ListingName, true
			break
		}
	}
	if !found {
		return domain.PropertyStatistics{}, fmt.Errorf("review %d: %w", reviewID, domain.ErrNotFound)
	}

	if err := s.moderation.Decide(ctx, reviewID, d); err != nil {
		return domain.PropertyStatistics{}, err
	}
	for _, p := range Aggregate(s.moderation.ApplyDecisions(reviews)) {
		if p.Name == listing {
			return p, nil
		}
	}
	return domain.PropertyStatistics{}, fmt.Errorf("property %q: %w", listing, domain.ErrNotFound)
}

// PublicProperty is the guest-facing page: approved reviews only.
func (s *DashboardService) PublicProperty(ctx context.Context, slug string) (domain.PublicProperty, error) {
	reviews, _, err := s.Reviews(ctx)
	if err != nil {
		return domain.PublicProperty{}, err
	}
	for _, p := range Aggregate(reviews) {
		if Slugify(p.Name) != slug {
			continue
		}
		approved := make([]domain.Review, 0, p.ApprovedReviews)
		for _, r := range p.Reviews {
			if r.Approved() {
				approved = append(approved, r)
			}
		}
		return domain.PublicProperty{
			Name:                 p.Name,
			Slug:                 slug,
			Reviews:              approved,
			AverageRating:        p.AverageRating,
			CategoryAverages:     p.CategoryAverages,
			TotalApprovedReviews: len(approved),
		}, nil
	}
	return domain.PublicProperty{}, fmt.Errorf("property %q: %w", slug, domain.ErrNotFound)
}

// Slugify lower-cases and joins alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"review_dashboard/internal/domain"
)

// ---- fakes ----

type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	sets   int
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (k *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return b, nil
}

func (k *fakeKV) Set(ctx context.Context, key string, blob []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.setErr != nil {
		return k.setErr
	}
	k.sets++
	k.data[key] = append([]byte(nil), blob...)
	return nil
}

func (k *fakeKV) Remove(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

// fakeCache round-trips through JSON like the real caches; ttl is ignored.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeSource struct {
	resp  domain.RawReviewResponse
	err   error
	calls atomic.Int32
}

func (s *fakeSource) FetchReviews(ctx context.Context) (domain.RawReviewResponse, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.RawReviewResponse{}, s.err
	}
	return s.resp, nil
}

type fakeAI struct {
	resp  domain.AnalysisResponse
	err   error
	calls atomic.Int32

	// optional: signal on entry, then block until release is closed
	started chan string
	release chan struct{}
}

func (f *fakeAI) AnalyzeProperty(ctx context.Context, name string, reviews []domain.Review) (domain.AnalysisResponse, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- name
		<-f.release
	}
	if f.err != nil {
		return domain.AnalysisResponse{}, f.err
	}
	return f.resp, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.DecisionEvent
}

func (a *fakeAudit) LogDecision(ctx context.Context, ev domain.DecisionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

type fakePlaces struct {
	resp     domain.PlaceReviews
	search   domain.PlaceSearch
	err      error
	searches atomic.Int32
}

func (p *fakePlaces) PlaceReviews(ctx context.Context, placeID string) (domain.PlaceReviews, error) {
	if p.err != nil {
		return domain.PlaceReviews{}, p.err
	}
	return p.resp, nil
}

func (p *fakePlaces) SearchPlace(ctx context.Context, query string) (domain.PlaceSearch, error) {
	p.searches.Add(1)
	if p.err != nil {
		return domain.PlaceSearch{}, p.err
	}
	out := p.search
	out.Query = query
	return out, nil
}

var errUpstream = errors.New("upstream down")

// ---- builders ----

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rev(id int64, listing string, rating float64, date string, cats map[string]float64) domain.Review {
	return domain.Review{
		ID:              id,
		Type:            "guest-to-host",
		Status:          "published",
		Rating:          rating,
		CategoryRatings: cats,
		SubmittedAt:     date + " 10:00:00",
		Date:            day(date).Add(10 * time.Hour),
		ListingName:     listing,
	}
}

func approved(r domain.Review) domain.Review {
	r.Moderation = domain.ModerationApproved
	return r
}

func raw(id int64, listing string, rating *float64, submitted string) domain.RawReview {
	return domain.RawReview{
		ID:             id,
		Type:           "guest-to-host",
		Status:         "published",
		Rating:         rating,
		ReviewCategory: []domain.RawReviewCategory{{Category: "cleanliness", Rating: 9}},
		SubmittedAt:    submitted,
		ListingName:    listing,
	}
}

func validAIResponse() domain.AnalysisResponse {
	return domain.AnalysisResponse{
		Summary:                ptr("Guests enjoy the stay.\nCheck-in could be smoother."),
		IssueLevel:             ptr("good"),
		PainPoints:             []any{"Slow check-in", "Thin walls", "Limited parking"},
		ImprovementSuggestions: []any{"Self check-in", "Soundproofing", "Parking guide"},
		Confidence:             ptr(0.85),
	}
}

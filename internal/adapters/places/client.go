package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/adapters/ratelimit"
	"review_dashboard/internal/domain"
)

// Client reads place details (rating + a handful of reviews) and resolves
// free-text queries to place IDs. Over-eager callers are rejected; the service
// layer serves the last good copy.
type Client struct {
	base       string
	key        string
	maxReviews int
	hc         *http.Client
	detailsRL  *ratelimit.Limiter
	searchRL   *ratelimit.Limiter
}

func New(base, key string, maxReviews int, minInterval time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("places API key is required")
	}
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/place"
	}
	if maxReviews <= 0 {
		maxReviews = 5
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		key:        key,
		maxReviews: maxReviews,
		hc:         &http.Client{Timeout: 15 * time.Second},
		detailsRL:  ratelimit.New("places", minInterval, 1, ratelimit.Reject),
		searchRL:   ratelimit.New("places-search", minInterval, 1, ratelimit.Reject),
	}, nil
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		FormattedAddress string  `json:"formatted_address"`
		Reviews          []struct {
			Rating                  int    `json:"rating"`
			Text                    string `json:"text"`
			AuthorName              string `json:"author_name"`
			Time                    int64  `json:"time"`
			RelativeTimeDescription string `json:"relative_time_description"`
		} `json:"reviews"`
	} `json:"result"`
}

type findResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"candidates"`
}

// get performs one GET against {base}/{endpoint}/json and decodes the body.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	q.Set("key", c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+endpoint+"/json?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("places", endpoint, 0, time.Since(start))
		return fmt.Errorf("places %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("places %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("places %s: decode: %w", endpoint, err)
	}
	return nil
}

func apiStatusErr(endpoint, status, msg string) error {
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Errorf("places %s: API status %s: %s", endpoint, status, msg)
}

func (c *Client) PlaceReviews(ctx context.Context, placeID string) (domain.PlaceReviews, error) {
	if err := c.detailsRL.Acquire(ctx); err != nil {
		return domain.PlaceReviews{}, err
	}

	var dr detailsResponse
	q := url.Values{
		"place_id": {placeID},
		"fields":   {"name,rating,user_ratings_total,reviews,formatted_address"},
	}
	if err := c.get(ctx, "details", q, &dr); err != nil {
		return domain.PlaceReviews{}, err
	}
	if dr.Status != "OK" {
		return domain.PlaceReviews{}, apiStatusErr("details", dr.Status, dr.ErrorMessage)
	}

	out := domain.PlaceReviews{
		PlaceID:      placeID,
		Name:         dr.Result.Name,
		Address:      dr.Result.FormattedAddress,
		Rating:       dr.Result.Rating,
		TotalReviews: dr.Result.UserRatingsTotal,
		Reviews:      []domain.PlaceReview{},
	}
	for i, r := range dr.Result.Reviews {
		if i == c.maxReviews {
			break
		}
		out.Reviews = append(out.Reviews, domain.PlaceReview{
			ID:                      fmt.Sprintf("google_%s_%d", placeID, r.Time),
			Rating:                  r.Rating,
			Text:                    r.Text,
			AuthorName:              r.AuthorName,
			Time:                    r.Time,
			RelativeTimeDescription: r.RelativeTimeDescription,
		})
	}
	return out, nil
}

// SearchPlace resolves a text query to candidate places. ZERO_RESULTS is an
// empty answer, not an error.
func (c *Client) SearchPlace(ctx context.Context, query string) (domain.PlaceSearch, error) {
	if err := c.searchRL.Acquire(ctx); err != nil {
		return domain.PlaceSearch{}, err
	}

	var fr findResponse
	q := url.Values{
		"input":     {query},
		"inputtype": {"textquery"},
		"fields":    {"place_id,name,formatted_address"},
	}
	if err := c.get(ctx, "findplacefromtext", q, &fr); err != nil {
		return domain.PlaceSearch{}, err
	}
	out := domain.PlaceSearch{Query: query, Candidates: []domain.PlaceCandidate{}}
	switch fr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return out, nil
	default:
		return domain.PlaceSearch{}, apiStatusErr("findplacefromtext", fr.Status, fr.ErrorMessage)
	}
	for _, cand := range fr.Candidates {
		out.Candidates = append(out.Candidates, domain.PlaceCandidate{
			PlaceID: cand.PlaceID,
			Name:    cand.Name,
			Address: cand.FormattedAddress,
		})
	}
	return out, nil
}

//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	server "review_dashboard/internal/adapters/http_server"
	"review_dashboard/internal/bootstrap"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
)

// ---------- fake upstreams ----------

func rawReview(id int64, listing string, rating *float64, date string) domain.RawReview {
	return domain.RawReview{
		ID:           id,
		Type:         "guest-to-host",
		Status:       "published",
		Rating:       rating,
		PublicReview: "Stay number " + fmt.Sprint(id),
		ReviewCategory: []domain.RawReviewCategory{
			{Category: "cleanliness", Rating: 8},
			{Category: "communication", Rating: 6},
		},
		SubmittedAt: date,
		GuestName:   "Guest",
		ListingName: listing,
	}
}

func pfloat(f float64) *float64 { return &f }

func upstreamReviews() domain.RawReviewResponse {
	rs := []domain.RawReview{
		rawReview(1, "Loft A", pfloat(8), "2024-08-01 10:00:00"),
		rawReview(2, "Loft A", pfloat(6), "2024-08-02 10:00:00"),
		rawReview(3, "Loft A", nil, "2024-08-03 10:00:00"),
		rawReview(4, "Loft A", nil, "2024-08-04 10:00:00"),
		rawReview(5, "Loft A", nil, "2024-08-05 10:00:00"),
		rawReview(6, "Loft A", nil, "2024-08-06 10:00:00"),
	}
	for i := int64(0); i < 5; i++ {
		rs = append(rs, rawReview(10+i, "Harbour View", pfloat(9), fmt.Sprintf("2024-07-%02d 09:30:00", 10+i)))
	}
	host := rawReview(99, "Harbour View", pfloat(10), "2024-07-20 09:30:00")
	host.Type = "host-to-guest"
	rs = append(rs, host)
	return domain.RawReviewResponse{Status: "success", Result: rs}
}

func hostawayServer(t *testing.T, down *atomic.Bool) *httptest.Server {
	t.Helper()
	body, _ := json.Marshal(upstreamReviews())
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() || r.Header.Get("Authorization") != "Bearer hk" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func llmServer(t *testing.T) *httptest.Server {
	t.Helper()
	content := "```json\n" + `{"summary":"Guests praise the views.","issueLevel":"good","painPoints":["Communication could be faster","",42],"improvementSuggestions":["Reply within the hour","Add a welcome guide","Refresh linens"],"confidence":0.85}` + "\n```"
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

// ---------- helpers ----------

type envelope struct {
	Status     string          `json:"status"`
	DataSource string          `json:"dataSource"`
	Data       json.RawMessage `json:"data"`
}

func call(t *testing.T, ts *httptest.Server, method, path string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(""))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	var env envelope
	if res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return res.StatusCode, env
}

func unmarshal[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return out
}

// ---------- the test ----------

func TestHTTP_EndToEnd_ModerationAndAnalysis(t *testing.T) {
	var down atomic.Bool
	hostaway := hostawayServer(t, &down)
	defer hostaway.Close()
	llm := llmServer(t)
	defer llm.Close()

	cfg := shared.Config{
		StoreBackend:       "memory",
		HostawayBase:       hostaway.URL,
		HostawayAccountID:  "61148",
		HostawayKey:        "hk",
		ReviewsCacheTTL:    time.Millisecond,
		PerplexityBase:     llm.URL,
		PerplexityKey:      "pk",
		AITimeout:          5 * time.Second,
		AIRequestDelay:     10 * time.Millisecond,
		ConcurrentAnalyses: 2,
		AnalysisCacheTTL:   24 * time.Hour,
		MinReviews:         5,
	}
	a, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{Dashboard: a.Dashboard, Analysis: a.Analysis, Places: a.Places})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// 1) live fetch: nulls and host reviews are excluded
	code, env := call(t, ts, http.MethodGet, "/v1/reviews")
	if code != http.StatusOK || env.DataSource != string(domain.ProvenanceLive) {
		t.Fatalf("reviews: status %d source %q", code, env.DataSource)
	}
	reviews := unmarshal[struct {
		Total int `json:"total"`
	}](t, env.Data)
	if reviews.Total != 7 {
		t.Fatalf("expected 7 canonical reviews, got %d", reviews.Total)
	}

	// 2) nothing approved yet
	_, env = call(t, ts, http.MethodGet, "/v1/properties?search=loft")
	props := unmarshal[struct {
		Properties []domain.PropertyStatistics `json:"properties"`
	}](t, env.Data).Properties
	if len(props) != 1 || props[0].PendingReviews != 2 || props[0].AverageRating != 0 {
		t.Fatalf("unexpected Loft A stats: %+v", props)
	}

	// 3) approving both reviews recomputes the average: ((8+6)/2)/2
	for _, id := range []int{1, 2} {
		if code, _ := call(t, ts, http.MethodPost, fmt.Sprintf("/v1/reviews/%d/approve", id)); code != http.StatusOK {
			t.Fatalf("approve %d: status %d", id, code)
		}
	}
	_, env = call(t, ts, http.MethodGet, "/v1/public/properties/loft-a")
	pub := unmarshal[domain.PublicProperty](t, env.Data)
	if pub.AverageRating != 3.5 || pub.TotalApprovedReviews != 2 {
		t.Fatalf("unexpected public page: %+v", pub)
	}

	// 4) too few reviews for analysis
	if code, _ := call(t, ts, http.MethodPost, "/v1/analysis/properties/Loft%20A"); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for Loft A, got %d", code)
	}

	// 5) AI analysis, fenced JSON sanitized to exactly three pain points
	code, env = call(t, ts, http.MethodPost, "/v1/analysis/properties/Harbour%20View")
	if code != http.StatusOK {
		t.Fatalf("analysis status %d", code)
	}
	an := unmarshal[domain.PropertyAnalysis](t, env.Data)
	if an.Source != domain.SourceAI || an.IssueLevel != domain.IssueGood || len(an.PainPoints) != 3 || an.ReviewCount != 5 {
		t.Fatalf("unexpected analysis: %+v", an)
	}
	if want := time.Date(2024, 7, 14, 9, 30, 0, 0, time.UTC); !an.LastReviewDate.Equal(want) {
		t.Fatalf("lastReviewDate = %v, want %v", an.LastReviewDate, want)
	}

	// 6) upstream outage: last good copy is served and tagged as such
	down.Store(true)
	time.Sleep(5 * time.Millisecond)
	code, env = call(t, ts, http.MethodGet, "/v1/reviews")
	if code != http.StatusOK || env.DataSource != string(domain.ProvenanceCachedFallback) {
		t.Fatalf("expected cached-fallback, got status %d source %q", code, env.DataSource)
	}
}

package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
)

func baseConfig() shared.Config {
	return shared.Config{
		StoreBackend:       "memory",
		ReviewsCacheTTL:    time.Minute,
		AnalysisCacheTTL:   time.Hour,
		MinReviews:         5,
		ConcurrentAnalyses: 2,
	}
}

func TestBuild_MemoryWithoutKeys(t *testing.T) {
	a, err := Build(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if a.Places != nil {
		t.Fatalf("places service should be disabled without a key")
	}
	_, prov, err := a.Dashboard.Reviews(context.Background())
	if err != nil || prov != domain.ProvenanceMock {
		t.Fatalf("expected mock reviews, got %q %v", prov, err)
	}
}

func TestBuild_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.StoreBackend = "redis"
	cfg.RedisAddr = mr.Addr()

	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if _, err := a.Dashboard.Moderate(context.Background(), 7454, domain.DecisionApprove); err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if !mr.Exists(redisKeyPrefix + "review-decisions") {
		t.Fatalf("expected decisions persisted in redis")
	}
}

func TestBuild_DefaultBackendSurvivesRestart(t *testing.T) {
	for _, k := range []string{"STORE_BACKEND", "HOSTAWAY_API_KEY", "PERPLEXITY_API_KEY", "GOOGLE_PLACES_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("DATA_DIR", t.TempDir())
	cfg := shared.Load()
	if cfg.StoreBackend != "file" {
		t.Fatalf("default backend = %q, want file", cfg.StoreBackend)
	}
	ctx := context.Background()
	const shoreditch = "2B N1 A - 29 Shoreditch Heights"

	a, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := a.Dashboard.Moderate(ctx, 7454, domain.DecisionApprove); err != nil {
		t.Fatalf("moderate: %v", err)
	}
	props, _, err := a.Dashboard.Properties(ctx, domain.FilterCriteria{Search: "shoreditch"})
	if err != nil || len(props) != 1 {
		t.Fatalf("properties: %v %+v", err, props)
	}
	if _, err := a.Analysis.AnalyzeProperty(ctx, shoreditch, props[0].Reviews, false); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	a.Close()

	b, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer b.Close()

	reviews, _, err := b.Dashboard.Reviews(ctx)
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	var found bool
	for _, r := range reviews {
		if r.ID == 7454 {
			found = true
			if r.Moderation != domain.ModerationApproved {
				t.Fatalf("after restart review 7454 moderation = %q", r.Moderation)
			}
		}
	}
	if !found {
		t.Fatalf("review 7454 missing")
	}
	if st := b.Analysis.Status(shoreditch); !st.IsCached {
		t.Fatalf("analysis cache lost across restart: %+v", st)
	}
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreBackend = "sqlite"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

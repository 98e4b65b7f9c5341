package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

type AnalysisConfig struct {
	MinReviews int           // below this, analysis is refused
	BatchSize  int           // analyses in flight per batch
	BatchDelay time.Duration // pause between batches
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{MinReviews: 5, BatchSize: 2, BatchDelay: 3 * time.Second}
}

// AnalysisService runs AI analyses per property with single-flight guarding,
// caching and a rule-based fallback. Only precondition errors reach callers.
type AnalysisService struct {
	client domain.AnalysisClient // nil: always fall back
	cache  *AnalysisCache
	cfg    AnalysisConfig
	now    func() time.Time

	mu     sync.Mutex
	active map[string]struct{}

	beforeBegin func(name string) // test hook; nil in production
}

func NewAnalysisService(client domain.AnalysisClient, cache *AnalysisCache, cfg AnalysisConfig) *AnalysisService {
	def := DefaultAnalysisConfig()
	if cfg.MinReviews <= 0 {
		cfg.MinReviews = def.MinReviews
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	return &AnalysisService{client: client, cache: cache, cfg: cfg, now: time.Now, active: map[string]struct{}{}}
}

// begin is the single-flight check-and-insert; false means someone else owns name.
func (s *AnalysisService) begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[name]; busy {
		return false
	}
	s.active[name] = struct{}{}
	return true
}

func (s *AnalysisService) end(name string) {
	s.mu.Lock()
	delete(s.active, name)
	s.mu.Unlock()
}

func (s *AnalysisService) isActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[name]
	return ok
}

func (s *AnalysisService) AnalyzeProperty(ctx context.Context, name string, reviews []domain.Review, force bool) (domain.PropertyAnalysis, error) {
	if len(reviews) < s.cfg.MinReviews {
		return domain.PropertyAnalysis{}, &domain.PreconditionError{
			Property: name,
			Err:      domain.ErrInsufficientData,
			Detail:   fmt.Sprintf("need at least %d, got %d", s.cfg.MinReviews, len(reviews)),
		}
	}

	if !force {
		if a, ok := s.cached(name); ok {
			return a, nil
		}
	}

	if s.beforeBegin != nil {
		s.beforeBegin(name)
	}
	if !s.begin(name) {
		return domain.PropertyAnalysis{}, &domain.PreconditionError{Property: name, Err: domain.ErrAlreadyInProgress}
	}
	defer s.end(name)

	// an analysis that finished between the first lookup and begin has
	// already filled the cache
	if !force {
		if a, ok := s.cached(name); ok {
			return a, nil
		}
	}

	if s.client == nil {
		log.Warn().Str("property", name).Msg("no AI client configured, using rule-based analysis")
		return s.fallback(ctx, name, reviews), nil
	}

	start := time.Now()
	resp, err := s.client.AnalyzeProperty(ctx, name, reviews)
	if err != nil {
		log.Warn().Err(err).Str("error_type", observability.LabelErr(err)).Str("property", name).Dur("elapsed", time.Since(start)).
			Msg("AI analysis failed, using rule-based analysis")
		return s.fallback(ctx, name, reviews), nil
	}

	v := ValidateResponse(resp)
	if !v.Valid() {
		log.Warn().Str("property", name).Strs("errors", v.Errors).Msg("invalid AI response, using rule-based analysis")
		return s.fallback(ctx, name, reviews), nil
	}
	if len(v.Warnings) > 0 {
		log.Warn().Str("property", name).Strs("warnings", v.Warnings).Msg("AI response warnings")
	}

	clean := SanitizeResponse(resp)
	now := s.now()
	a := domain.PropertyAnalysis{
		PropertyName:           name,
		Summary:                clean.Summary,
		IssueLevel:             clean.IssueLevel,
		PainPoints:             clean.PainPoints,
		ImprovementSuggestions: clean.Suggestions,
		Confidence:             clean.Confidence,
		AnalyzedAt:             now.UTC(),
		ReviewCount:            len(reviews),
		LastReviewDate:         latestReviewDate(reviews, now),
		Source:                 domain.SourceAI,
	}
	s.cache.Set(ctx, name, a)
	observability.ObserveAnalysis(string(domain.SourceAI))
	log.Info().Str("property", name).Str("issue_level", string(a.IssueLevel)).Float64("confidence", a.Confidence).Msg("AI analysis completed")
	return a, nil
}

func (s *AnalysisService) cached(name string) (domain.PropertyAnalysis, bool) {
	a, ok := s.cache.Get(name)
	if ok {
		observability.ObserveAnalysis("cached")
		log.Debug().Str("property", name).Msg("serving cached analysis")
	}
	return a, ok
}

func (s *AnalysisService) fallback(ctx context.Context, name string, reviews []domain.Review) domain.PropertyAnalysis {
	a := RuleBasedAnalysis(name, reviews, s.now())
	s.cache.Set(ctx, name, a)
	observability.ObserveAnalysis(string(domain.SourceFallback))
	return a
}

// BatchAnalyze serves cached analyses directly and runs the rest in fixed-size
// concurrent batches with a pause between batches. Failed items are omitted.
func (s *AnalysisService) BatchAnalyze(ctx context.Context, props []domain.PropertyStatistics) []domain.PropertyAnalysis {
	var (
		needs   []domain.PropertyStatistics
		results []domain.PropertyAnalysis
	)
	for _, p := range props {
		if len(p.Reviews) >= s.cfg.MinReviews && !s.cache.IsCached(p.Name) && !s.isActive(p.Name) {
			needs = append(needs, p)
			continue
		}
		if a, ok := s.cache.Get(p.Name); ok {
			results = append(results, a)
		}
	}
	log.Info().Int("properties", len(props)).Int("fresh", len(needs)).Int("cached", len(results)).Msg("batch analysis starting")

	size := s.cfg.BatchSize
	var mu sync.Mutex
	for i := 0; i < len(needs); i += size {
		batch := needs[i:min(i+size, len(needs))]

		var g errgroup.Group
		for _, p := range batch {
			g.Go(func() error {
				a, err := s.AnalyzeProperty(ctx, p.Name, p.Reviews, false)
				if err != nil {
					log.Warn().Err(err).Str("property", p.Name).Msg("batch item skipped")
					return nil
				}
				mu.Lock()
				results = append(results, a)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if i+size < len(needs) && !sleepCtx(ctx, s.cfg.BatchDelay) {
			log.Warn().Err(ctx.Err()).Msg("batch analysis interrupted")
			break
		}
	}

	log.Info().Int("analyses", len(results)).Int("properties", len(props)).Msg("batch analysis completed")
	return results
}

func (s *AnalysisService) Status(name string) domain.AnalysisStatus {
	st := domain.AnalysisStatus{IsProcessing: s.isActive(name), IsCached: s.cache.IsCached(name)}
	if age, ok := s.cache.Age(name); ok {
		secs := age.Seconds()
		st.CacheAgeSeconds = &secs
	}
	return st
}

func (s *AnalysisService) ClearCache(ctx context.Context) { s.cache.Clear(ctx) }

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/bootstrap"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
)

func main() {
	force := flag.Bool("force", false, "re-analyze every eligible property, ignoring the cache")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "review-analyzer", cfg.LogLevel)

	a, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer a.Close()

	props, prov, err := a.Dashboard.Properties(ctx, domain.FilterCriteria{})
	if err != nil {
		log.Fatal().Err(err).Msg("loading properties failed")
	}
	log.Info().
		Int("properties", len(props)).
		Str("provenance", string(prov)).
		Bool("force", *force).
		Int("workers", cfg.ConcurrentAnalyses).
		Msg("analyzer starting")

	if !*force {
		analyses := a.Analysis.BatchAnalyze(ctx, props)
		log.Info().Int("analyses", len(analyses)).Msg("analysis completed")
		return
	}

	sem := semaphore.NewWeighted(int64(max(cfg.ConcurrentAnalyses, 1)))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		done   int
		failed int
	)
	for _, p := range props {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("stopping early")
			break
		}

		wg.Add(1)
		go func(p domain.PropertyStatistics) {
			defer wg.Done()
			defer sem.Release(1)

			an, err := a.Analysis.AnalyzeProperty(ctx, p.Name, p.Reviews, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientData) {
					failed++
				}
				log.Warn().Str("property", p.Name).Err(err).Msg("analysis skipped")
				return
			}
			done++
			log.Info().Str("property", p.Name).Str("source", string(an.Source)).Str("issue_level", string(an.IssueLevel)).Msg("analysis ok")
		}(p)
	}

	wg.Wait()
	log.Info().Int("analyzed", done).Int("failed", failed).Msg("forced analysis completed")
}

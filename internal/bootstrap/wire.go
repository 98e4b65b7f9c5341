// Package bootstrap assembles stores, outbound clients and services from
// Config. Both binaries share it.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"review_dashboard/internal/adapters/hostaway"
	"review_dashboard/internal/adapters/perplexity"
	"review_dashboard/internal/adapters/places"
	redisad "review_dashboard/internal/adapters/redis"
	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
	"review_dashboard/internal/storage/file"
	"review_dashboard/internal/storage/memory"
	mysqlrepo "review_dashboard/internal/storage/mysql"
)

const (
	redisKeyPrefix      = "dashboard:"
	hostawayMinInterval = time.Second
	placesMinInterval   = 2 * time.Second
)

type App struct {
	Dashboard *app.DashboardService
	Analysis  *app.AnalysisService
	Places    *app.PlacesService

	closers []func() error
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

type stores struct {
	kv    domain.KVStore
	cache domain.Cache
	audit domain.DecisionLog
}

func (a *App) openStores(ctx context.Context, cfg shared.Config) (stores, error) {
	switch cfg.StoreBackend {
	case "file":
		fstore, err := file.New(cfg.DataDir)
		if err != nil {
			return stores{}, err
		}
		log.Info().Str("dir", cfg.DataDir).Msg("file store ready")
		return stores{kv: fstore, cache: memory.NewCache()}, nil

	case "memory":
		log.Warn().Msg("memory store backend: decisions and analyses are lost on restart")
		return stores{kv: memory.NewStore(), cache: memory.NewCache()}, nil

	case "redis":
		rc, err := a.openRedis(ctx, cfg)
		if err != nil {
			return stores{}, err
		}
		return stores{kv: redisad.NewStore(rc, redisKeyPrefix), cache: redisad.NewFromClient(rc)}, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return stores{}, fmt.Errorf("sql.Open: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return stores{}, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		repo := mysqlrepo.New(db)

		rc, err := a.openRedis(ctx, cfg)
		if err != nil {
			return stores{}, err
		}
		return stores{kv: repo, cache: redisad.NewFromClient(rc), audit: repo}, nil
	}
	return stores{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func (a *App) openRedis(ctx context.Context, cfg shared.Config) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	a.closers = append(a.closers, rc.Close)
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
	return rc, nil
}

// Build wires the whole service graph. Missing API keys degrade the matching
// collaborator (mock reviews, rule-based analyses, no places) rather than fail.
func Build(ctx context.Context, cfg shared.Config) (*App, error) {
	a := &App{}
	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var source domain.ReviewSource
	if cfg.HostawayKey != "" {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, hostawayMinInterval)
		if err != nil {
			a.Close()
			return nil, err
		}
		source = c
	}

	var ai domain.AnalysisClient
	if cfg.PerplexityKey != "" {
		c, err := perplexity.New(perplexity.Config{
			BaseURL:      cfg.PerplexityBase,
			APIKey:       cfg.PerplexityKey,
			Model:        cfg.PerplexityModel,
			Timeout:      cfg.AITimeout,
			RequestDelay: cfg.AIRequestDelay,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		ai = c
	}

	var pc domain.PlacesClient
	if cfg.PlacesKey != "" {
		c, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesMaxReviews, placesMinInterval)
		if err != nil {
			a.Close()
			return nil, err
		}
		pc = c
	}

	mod := app.NewModerationStore(ctx, st.kv, st.audit)
	cache := app.NewAnalysisCache(ctx, st.kv, cfg.AnalysisCacheTTL, time.Now)

	a.Dashboard = app.NewDashboardService(source, st.cache, cfg.ReviewsCacheTTL, hostaway.Fixture, mod)
	a.Analysis = app.NewAnalysisService(ai, cache, app.AnalysisConfig{
		MinReviews: cfg.MinReviews,
		BatchSize:  cfg.ConcurrentAnalyses,
		BatchDelay: cfg.AIRequestDelay,
	})
	if pc != nil {
		a.Places = app.NewPlacesService(pc, st.cache, cfg.PlacesCacheTTL)
	}

	log.Info().
		Str("store", cfg.StoreBackend).
		Bool("hostaway", source != nil).
		Bool("ai", ai != nil).
		Bool("places", pc != nil).
		Msg("services wired")
	return a, nil
}

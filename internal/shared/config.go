package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/subosito/gotenv"
)

type Config struct {
	AppEnv       string
	LogLevel     string
	HTTPAddr     string
	HTTPTimeout  time.Duration
	MetricsAddr  string
	StoreBackend string // file | mysql | redis | memory
	DataDir      string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	HostawayBase      string
	HostawayAccountID string
	HostawayKey       string
	ReviewsCacheTTL   time.Duration

	PerplexityBase  string
	PerplexityKey   string
	PerplexityModel string
	AITimeout       time.Duration
	AIRequestDelay  time.Duration

	ConcurrentAnalyses int
	AnalysisCacheTTL   time.Duration
	MinReviews         int

	PlacesBase       string
	PlacesKey        string
	PlacesCacheTTL   time.Duration
	PlacesMaxReviews int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding variables already set.
func Load() Config {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		LogLevel:     env("LOG_LEVEL", ""),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		HTTPTimeout:  time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 120)) * time.Second,
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		StoreBackend: env("STORE_BACKEND", "file"),
		DataDir:      env("DATA_DIR", "data"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),

		HostawayBase:      env("HOSTAWAY_BASE_URL", "https://api.hostaway.com"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayKey:       env("HOSTAWAY_API_KEY", ""),
		ReviewsCacheTTL:   time.Duration(atoi("REVIEWS_CACHE_SECONDS", 300)) * time.Second,

		PerplexityBase:  env("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		PerplexityKey:   env("PERPLEXITY_API_KEY", ""),
		PerplexityModel: env("PERPLEXITY_MODEL", "sonar"),
		AITimeout:       time.Duration(atoi("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		AIRequestDelay:  time.Duration(atoi("AI_REQUEST_DELAY_MS", 3000)) * time.Millisecond,

		ConcurrentAnalyses: atoi("CONCURRENT_ANALYSES", 2),
		AnalysisCacheTTL:   time.Duration(atoi("ANALYSIS_CACHE_HOURS", 24)) * time.Hour,
		MinReviews:         atoi("MIN_REVIEWS_FOR_ANALYSIS", 5),

		PlacesBase:       env("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:        env("GOOGLE_PLACES_API_KEY", ""),
		PlacesCacheTTL:   time.Duration(atoi("PLACES_CACHE_HOURS", 24)) * time.Hour,
		PlacesMaxReviews: atoi("PLACES_MAX_REVIEWS", 5),
	}
	if c.HostawayKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty, serving mock reviews")
	}
	if c.PerplexityKey == "" {
		log.Warn().Msg("PERPLEXITY_API_KEY is empty, analyses will be rule-based")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

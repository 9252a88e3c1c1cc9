package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"review_sentiment/internal/domain"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	RawPath      string
	EnrichedPath string

	SentimentURL      string
	SentimentInterval time.Duration
	SentimentTimeout  time.Duration
	SentimentRetries  int
	Workers           int

	GenAIKey      string
	GenAIModel    string
	GenAIInterval time.Duration
	City          string
	ReviewCount   int

	TargetsFile    string
	ScrapeSelector string
	ScrapeInterval time.Duration

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	DashboardMode  string
	DashboardWatch bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		RawPath:      env("RAW_REVIEWS_PATH", "data/raw_reviews.json"),
		EnrichedPath: env("ENRICHED_REVIEWS_PATH", "data/restaurant_reviews.csv"),

		SentimentURL:      env("SENTIMENT_API_URL", "https://sentiment-api-service-fzdu57t2fa-uc.a.run.app/predict"),
		SentimentInterval: dur("SENTIMENT_INTERVAL", 500*time.Millisecond),
		SentimentTimeout:  dur("SENTIMENT_TIMEOUT", 20*time.Second),
		SentimentRetries:  atoi("SENTIMENT_RETRIES", 0),
		Workers:           atoi("ENRICH_WORKERS", 1),

		GenAIKey:      firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		GenAIModel:    env("GEMINI_MODEL", "gemini-1.5-flash"),
		GenAIInterval: dur("GENAI_INTERVAL", time.Second),
		City:          env("REVIEW_CITY", "Surat, Gujarat"),
		ReviewCount:   atoi("REVIEWS_PER_RESTAURANT", 10),

		TargetsFile:    env("TARGETS_FILE", ""),
		ScrapeSelector: env("SCRAPE_SELECTOR", "div.sc-1q7bklc-1 p"),
		ScrapeInterval: dur("SCRAPE_INTERVAL", 2*time.Second),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,

		DashboardMode:  env("DASHBOARD_MODE", "processed"),
		DashboardWatch: boolean("DASHBOARD_WATCH", false),
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
	}
	return def
}

func dur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring invalid duration")
	}
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

/********** restaurant targets **********/

func DefaultTargets() []domain.Target {
	return []domain.Target{
		{Name: "Ziba Restaurant", Location: "Adajan", URL: "https://www.zomato.com/surat/ziba-restaurant-adajan/reviews"},
		{Name: "The Royal Cafe", Location: "Athwa", URL: "https://www.zomato.com/surat/the-royal-cafe-athwa/reviews"},
		{Name: "Coffee Culture", Location: "Vesu", URL: "https://www.zomato.com/surat/coffee-culture-1-vesu/reviews"},
		{Name: "Jugaad Nights", Location: "Vesu", URL: "https://www.zomato.com/surat/jugaad-nights-vesu/reviews"},
		{Name: "Tomatoes", Location: "Piplod", URL: "https://www.zomato.com/surat/tomatoes-piplod/reviews"},
		{Name: "Level 5", Location: "Vesu", URL: "https://www.zomato.com/surat/level-5-vesu/reviews"},
	}
}

type targetsFile struct {
	Targets []domain.Target `yaml:"targets"`
}

// LoadTargets reads restaurant targets from a YAML file. An empty path
// returns DefaultTargets.
func LoadTargets(path string) ([]domain.Target, error) {
	if path == "" {
		return DefaultTargets(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	var f targetsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse targets %s: %w", path, err)
	}
	out := make([]domain.Target, 0, len(f.Targets))
	for i, t := range f.Targets {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("targets %s: entry %d has no name", path, i)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("targets %s: no targets defined", path)
	}
	return out, nil
}

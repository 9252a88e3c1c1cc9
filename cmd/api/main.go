package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/gemini"
	server "review_sentiment/internal/adapters/http_server"
	"review_sentiment/internal/adapters/memcache"
	"review_sentiment/internal/adapters/observability"
	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/adapters/scraper"
	"review_sentiment/internal/adapters/sentiment"
	"review_sentiment/internal/adapters/watch"
	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
	"review_sentiment/internal/shared"
	"review_sentiment/internal/storage/flatfile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	mode, err := app.ParseDashboardMode(cfg.DashboardMode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DASHBOARD_MODE")
	}

	// deps
	store := flatfile.New(cfg.RawPath, cfg.EnrichedPath)
	dash := app.NewDashboardService(store, mode)

	if cfg.DashboardWatch {
		w := watch.New([]string{cfg.RawPath, cfg.EnrichedPath}, func(string) { dash.Invalidate() })
		if err := w.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("file watcher disabled; relying on mtime checks")
		}
	}

	// http
	srv := server.New(15 * time.Second)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{D: dash, P: newPipeline(ctx, cfg, store, dash)})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("mode", string(mode)).
		Str("enriched", cfg.EnrichedPath).
		Msg("dashboard API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("dashboard API stopped")
}

// newPipeline wires the collectors and classifier behind the dashboard's
// run endpoints. A missing Gemini key leaves LLM generation unconfigured.
func newPipeline(ctx context.Context, cfg shared.Config, store domain.ReviewStore, dash *app.DashboardService) *app.PipelineRunner {
	targets, err := shared.LoadTargets(cfg.TargetsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.TargetsFile).Msg("load targets")
	}

	var gen domain.ReviewGenerator
	if cfg.GenAIKey != "" {
		g, err := gemini.New(ctx, cfg.GenAIKey, cfg.GenAIModel, cfg.City)
		if err != nil {
			log.Warn().Err(err).Msg("gemini client disabled")
		} else {
			gen = g
		}
	}
	fetch := scraper.New(nil, cfg.ScrapeSelector, cfg.ScrapeInterval)
	collect := app.NewCollectService(gen, fetch, app.NewIngestService(), 0, cfg.GenAIInterval)

	client, err := sentiment.New(cfg.SentimentURL, sentiment.Options{
		Interval: cfg.SentimentInterval,
		Timeout:  cfg.SentimentTimeout,
		Retries:  cfg.SentimentRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid SENTIMENT_API_URL")
	}
	var cache domain.Cache = memcache.New(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory classification cache")
			_ = rc.Close()
		} else {
			cache = rc
		}
	}
	enrich := app.NewEnrichmentService(app.NewMemoClassifier(client, cache, cfg.CacheTTL))

	return app.NewPipelineRunner(collect, enrich, store, dash, targets, app.EnrichOptions{Workers: cfg.Workers})
}

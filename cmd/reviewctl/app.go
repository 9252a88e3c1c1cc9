package main

import (
	"io"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/shared"
)

// newApp builds the CLI. Flag defaults come from cfg, so flags override env.
func newApp(cfg shared.Config, stdout io.Writer) *cli.App {
	cmd := &commands{cfg: cfg, out: stdout}
	return &cli.App{
		Name:  "reviewctl",
		Usage: "collect, classify and summarize restaurant reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "raw", Value: cfg.RawPath, Usage: "raw reviews JSON file"},
			&cli.StringFlag{Name: "enriched", Value: cfg.EnrichedPath, Usage: "enriched reviews CSV/TSV file"},
			&cli.StringFlag{Name: "log-level", Value: cfg.LogLevel},
		},
		Before: func(c *cli.Context) error {
			log.Logger = observability.NewLogger(cfg.AppEnv, c.String("log-level"))
			observability.Serve(c.Context, cfg.MetricsAddr)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "normalize reviews from an LLM, scraped pages or a labeled corpus into the raw file",
				Action: cmd.ingestAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "llm | scrape | corpus"},
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "read the source from this file instead of collecting it"},
					&cli.StringFlag{Name: "restaurant", Usage: "default restaurant for --input LLM batches"},
					&cli.StringFlag{Name: "targets", Value: cfg.TargetsFile, Usage: "YAML file with restaurant targets"},
					&cli.IntFlag{Name: "count", Value: cfg.ReviewCount, Usage: "reviews to generate per restaurant"},
					&cli.DurationFlag{Name: "gen-interval", Value: cfg.GenAIInterval, Usage: "minimum spacing between LLM requests"},
					&cli.BoolFlag{Name: "append", Usage: "keep existing raw reviews and add the new ones"},
				},
			},
			{
				Name:   "enrich",
				Usage:  "classify raw reviews and write the enriched file",
				Action: cmd.enrichAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "endpoint", Value: cfg.SentimentURL},
					&cli.DurationFlag{Name: "interval", Value: cfg.SentimentInterval, Usage: "minimum spacing between classifier calls"},
					&cli.IntFlag{Name: "retries", Value: cfg.SentimentRetries},
					&cli.IntFlag{Name: "workers", Value: cfg.Workers},
					&cli.BoolFlag{Name: "resume", Usage: "re-classify only unenriched or Error records of the enriched file"},
					&cli.StringFlag{Name: "cache", Value: defaultCache(cfg), Usage: "memo cache: none | memory | redis"},
				},
			},
			{
				Name:   "summarize",
				Usage:  "print per-restaurant sentiment metrics",
				Action: cmd.summarizeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Value: cfg.DashboardMode, Usage: "processed | fallback"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "text | json | yaml"},
				},
			},
		},
	}
}

func defaultCache(cfg shared.Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"review_sentiment/internal/adapters/gemini"
	"review_sentiment/internal/adapters/memcache"
	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/adapters/scraper"
	"review_sentiment/internal/adapters/sentiment"
	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
	"review_sentiment/internal/shared"
	"review_sentiment/internal/storage/flatfile"
)

type commands struct {
	cfg shared.Config
	out io.Writer
}

func (cmd *commands) store(c *cli.Context) *flatfile.Store {
	return flatfile.New(c.String("raw"), c.String("enriched"))
}

/********** ingest **********/

func (cmd *commands) ingestAction(c *cli.Context) error {
	kind, ok := domain.ParseSourceKind(c.String("source"))
	if !ok {
		return fmt.Errorf("unknown source %q (want llm, scrape or corpus)", c.String("source"))
	}
	ctx := c.Context
	ing := app.NewIngestService()

	var (
		rs  []domain.Review
		rep domain.IngestReport
		err error
	)
	if path := c.String("input"); path != "" {
		body, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("read input: %w", rerr)
		}
		if kind == domain.SourceScraped {
			return errors.New("scrape source cannot be read from --input")
		}
		rs, rep, err = ing.Normalize(domain.RawSource{Kind: kind, Body: body, Restaurant: c.String("restaurant")})
	} else {
		targets, terr := shared.LoadTargets(c.String("targets"))
		if terr != nil {
			return terr
		}
		switch kind {
		case domain.SourceLLMBatch:
			gen, gerr := gemini.New(ctx, cmd.cfg.GenAIKey, cmd.cfg.GenAIModel, cmd.cfg.City)
			if gerr != nil {
				return gerr
			}
			rs, rep, err = app.NewCollectService(gen, nil, ing, c.Int("count"), c.Duration("gen-interval")).Generate(ctx, targets)
		case domain.SourceScraped:
			f := scraper.New(nil, cmd.cfg.ScrapeSelector, cmd.cfg.ScrapeInterval)
			rs, rep, err = app.NewCollectService(nil, f, ing, 0, 0).Scrape(ctx, targets)
		default:
			return errors.New("corpus source requires --input")
		}
	}
	if err != nil {
		return err
	}

	store := cmd.store(c)
	if c.Bool("append") {
		prev, lerr := store.LoadRaw(ctx)
		if lerr != nil && !domain.IsNoData(lerr) {
			return lerr
		}
		rs = append(prev, rs...)
	}
	if err := store.SaveRaw(ctx, rs); err != nil {
		return fmt.Errorf("save raw reviews: %w", err)
	}
	fmt.Fprintf(cmd.out, "ingested %s: accepted=%d skipped=%d total=%d -> %s\n",
		rep.Kind, rep.Accepted, rep.Skipped, len(rs), store.RawPath())
	return nil
}

/********** enrich **********/

func (cmd *commands) classifier(c *cli.Context) (domain.Classifier, func(), error) {
	client, err := sentiment.New(c.String("endpoint"), sentiment.Options{
		Interval: c.Duration("interval"),
		Timeout:  cmd.cfg.SentimentTimeout,
		Retries:  c.Int("retries"),
	})
	if err != nil {
		return nil, nil, err
	}
	switch c.String("cache") {
	case "", "none":
		return client, func() {}, nil
	case "memory":
		return app.NewMemoClassifier(client, memcache.New(cmd.cfg.CacheTTL), cmd.cfg.CacheTTL), func() {}, nil
	case "redis":
		rc := redisad.New(cmd.cfg.RedisAddr, cmd.cfg.RedisPass, cmd.cfg.RedisDB)
		if err := rc.Ping(c.Context); err != nil {
			log.Warn().Err(err).Str("addr", cmd.cfg.RedisAddr).Msg("redis unavailable, classifying without memo cache")
			_ = rc.Close()
			return client, func() {}, nil
		}
		return app.NewMemoClassifier(client, rc, cmd.cfg.CacheTTL), func() { _ = rc.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cache %q", c.String("cache"))
}

func (cmd *commands) enrichAction(c *cli.Context) error {
	ctx := c.Context
	store := cmd.store(c)

	var (
		in  []domain.Review
		err error
	)
	resume := c.Bool("resume")
	if resume {
		in, err = store.LoadEnriched(ctx)
	} else {
		in, err = store.LoadRaw(ctx)
	}
	if err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}

	cl, closeFn, err := cmd.classifier(c)
	if err != nil {
		return err
	}
	defer closeFn()

	out, rep := app.NewEnrichmentService(cl).Enrich(ctx, in, app.EnrichOptions{
		Workers:     c.Int("workers"),
		OnlyMissing: resume,
		Progress: func(done, total int) {
			if done%25 == 0 || done == total {
				log.Info().Int("done", done).Int("total", total).Msg("enrichment progress")
			}
		},
	})

	// partial results are still written so an interrupted run can --resume
	if err := store.SaveEnriched(ctx, out); err != nil {
		return fmt.Errorf("save enriched reviews: %w", err)
	}
	fmt.Fprintf(cmd.out, "enriched %d reviews: succeeded=%d error=%d skipped=%d unprocessed=%d run=%s -> %s\n",
		rep.Total, rep.Succeeded, rep.Failed, rep.Skipped, rep.Unprocessed, rep.RunID, store.EnrichedPath())
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enrichment interrupted: %w", err)
	}
	return nil
}

/********** summarize **********/

func (cmd *commands) summarizeAction(c *cli.Context) error {
	mode, err := app.ParseDashboardMode(c.String("mode"))
	if err != nil {
		return err
	}
	snap, err := app.NewDashboardService(cmd.store(c), mode).Snapshot(c.Context)
	if domain.IsNoData(err) {
		fmt.Fprintln(cmd.out, "No data available. Run `reviewctl ingest` and `reviewctl enrich` first.")
		return nil
	}
	if err != nil {
		return err
	}

	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(cmd.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Summary)
	case "yaml":
		b, err := yaml.Marshal(snap.Summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		_, err = cmd.out.Write(b)
		return err
	case "text", "":
		return renderSummary(cmd.out, snap)
	}
	return fmt.Errorf("unknown format %q", c.String("format"))
}

func renderSummary(w io.Writer, snap *app.Snapshot) error {
	s := snap.Summary
	fmt.Fprintf(w, "dataset: %s (updated %s)\n", snap.Dataset, snap.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "reviews: %d  average polarity: %.2f  positive: %.1f%%  unenriched: %d\n",
		s.Global.ReviewCount, s.Global.AveragePolarity, s.Global.PositivePercentage, s.Unenriched)
	fmt.Fprintf(w, "polarity sums: positive %.2f  negative %.2f  net %.2f\n",
		s.Polarity.Positive, s.Polarity.Negative, s.Polarity.Net)
	if s.Agreement.Compared > 0 {
		fmt.Fprintf(w, "baseline agreement: %d/%d (%.1f%%)\n",
			s.Agreement.Matched, s.Agreement.Compared, 100*s.Agreement.Rate)
	}
	if len(s.Restaurants) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESTAURANT\tREVIEWS\tAVG POLARITY\tPOSITIVE %")
	for _, m := range s.Restaurants {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f\n", m.Restaurant, m.ReviewCount, m.AveragePolarity, m.PositivePercentage)
	}
	return tw.Flush()
}

package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"review_sentiment/internal/domain"
)

var ErrCollectorNotConfigured = errors.New("collector not configured")

// CollectService gathers raw reviews for a list of restaurants, either by
// prompting an LLM or by scraping review pages, and normalizes them.
type CollectService struct {
	gen    domain.ReviewGenerator
	fetch  domain.PageFetcher
	ingest *IngestService
	count  int
	genRL  *rate.Limiter
}

// NewCollectService builds the collector; genInterval spaces consecutive
// LLM requests (<= 0 disables pacing). Scrape pacing lives in the fetcher.
func NewCollectService(gen domain.ReviewGenerator, fetch domain.PageFetcher, ingest *IngestService, count int, genInterval time.Duration) *CollectService {
	if count <= 0 {
		count = 10
	}
	rl := rate.NewLimiter(rate.Inf, 1)
	if genInterval > 0 {
		rl = rate.NewLimiter(rate.Every(genInterval), 1)
	}
	return &CollectService{gen: gen, fetch: fetch, ingest: ingest, count: count, genRL: rl}
}

// Generate asks the LLM for reviews of each target. A failing target is
// logged and skipped; only cancellation aborts the run.
func (s *CollectService) Generate(ctx context.Context, targets []domain.Target) ([]domain.Review, domain.IngestReport, error) {
	rep := domain.IngestReport{Kind: domain.SourceLLMBatch}
	if s.gen == nil {
		return nil, rep, ErrCollectorNotConfigured
	}
	var out []domain.Review
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return out, rep, err
		}
		if err := s.genRL.Wait(ctx); err != nil {
			return out, rep, err
		}
		label := t.Label()
		body, err := s.gen.Generate(ctx, label, s.count)
		if err != nil {
			if ctx.Err() != nil {
				return out, rep, ctx.Err()
			}
			log.Warn().Err(err).Str("restaurant", label).Msg("review generation failed")
			continue
		}
		rs, r, err := s.ingest.Normalize(domain.RawSource{
			Kind:       domain.SourceLLMBatch,
			Body:       []byte(body),
			Restaurant: label,
		})
		if err != nil {
			log.Warn().Err(err).Str("restaurant", label).Msg("unusable llm output")
			continue
		}
		rep.Accepted += r.Accepted
		rep.Skipped += r.Skipped
		out = append(out, rs...)
		log.Info().Str("restaurant", label).Int("reviews", len(rs)).Msg("generated reviews")
	}
	return out, rep, nil
}

// Scrape fetches each target's review page. Targets without a URL or whose
// fetch fails are skipped.
func (s *CollectService) Scrape(ctx context.Context, targets []domain.Target) ([]domain.Review, domain.IngestReport, error) {
	rep := domain.IngestReport{Kind: domain.SourceScraped}
	if s.fetch == nil {
		return nil, rep, ErrCollectorNotConfigured
	}
	pages := make([]domain.ScrapedPage, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		if t.URL == "" {
			log.Warn().Str("restaurant", t.Name).Msg("no url configured, skipping")
			continue
		}
		frags, err := s.fetch.Fetch(ctx, t.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, rep, ctx.Err()
			}
			log.Warn().Err(err).Str("restaurant", t.Name).Str("url", t.URL).Msg("scrape failed")
			continue
		}
		pages = append(pages, domain.ScrapedPage{Restaurant: t.Name, URL: t.URL, Fragments: frags})
	}
	return s.ingest.Normalize(domain.RawSource{Kind: domain.SourceScraped, Pages: pages})
}

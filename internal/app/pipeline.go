package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
)

// ErrPipelineBusy is returned when a run is requested while another one
// is still writing the data files.
var ErrPipelineBusy = errors.New("pipeline run already in progress")

// PipelineRunner runs collection and enrichment on behalf of the dashboard.
// At most one run touches the data files at a time.
type PipelineRunner struct {
	collect *CollectService
	enrich  *EnrichmentService
	store   domain.ReviewStore
	dash    *DashboardService
	targets []domain.Target
	opts    EnrichOptions

	mu sync.Mutex
}

func NewPipelineRunner(collect *CollectService, enrich *EnrichmentService, store domain.ReviewStore,
	dash *DashboardService, targets []domain.Target, opts EnrichOptions) *PipelineRunner {
	return &PipelineRunner{collect: collect, enrich: enrich, store: store, dash: dash, targets: targets, opts: opts}
}

// Generate collects fresh reviews from kind (llm or scrape) and replaces
// the raw dataset with them.
func (p *PipelineRunner) Generate(ctx context.Context, kind domain.SourceKind) (domain.IngestReport, error) {
	if !p.mu.TryLock() {
		return domain.IngestReport{}, ErrPipelineBusy
	}
	defer p.mu.Unlock()

	var (
		rs  []domain.Review
		rep domain.IngestReport
		err error
	)
	switch kind {
	case domain.SourceLLMBatch:
		rs, rep, err = p.collect.Generate(ctx, p.targets)
	case domain.SourceScraped:
		rs, rep, err = p.collect.Scrape(ctx, p.targets)
	default:
		return rep, fmt.Errorf("source %q cannot be collected", kind)
	}
	if err != nil {
		return rep, err
	}
	if len(rs) == 0 {
		return rep, fmt.Errorf("no reviews collected from %s: %w", kind, domain.ErrNotFound)
	}
	if err := p.store.SaveRaw(ctx, rs); err != nil {
		return rep, fmt.Errorf("save raw reviews: %w", err)
	}
	p.dash.Invalidate()
	log.Info().Str("source", string(kind)).Int("accepted", rep.Accepted).Int("skipped", rep.Skipped).Msg("dashboard generation finished")
	return rep, nil
}

// Enrich classifies the raw dataset and writes the enriched one. Partial
// output of a canceled run is still written.
func (p *PipelineRunner) Enrich(ctx context.Context) (EnrichReport, error) {
	if !p.mu.TryLock() {
		return EnrichReport{}, ErrPipelineBusy
	}
	defer p.mu.Unlock()

	in, err := p.store.LoadRaw(ctx)
	if err != nil {
		return EnrichReport{}, err
	}
	out, rep := p.enrich.Enrich(ctx, in, p.opts)
	if err := p.store.SaveEnriched(context.WithoutCancel(ctx), out); err != nil {
		return rep, fmt.Errorf("save enriched reviews: %w", err)
	}
	p.dash.Invalidate()
	return rep, ctx.Err()
}

package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

type DashboardMode string

const (
	// ModeProcessed serves only the enriched dataset.
	ModeProcessed DashboardMode = "processed"
	// ModeFallback serves the enriched dataset, else the raw one.
	ModeFallback DashboardMode = "fallback"
)

func ParseDashboardMode(s string) (DashboardMode, error) {
	switch m := DashboardMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeProcessed, ModeFallback:
		return m, nil
	case "":
		return ModeProcessed, nil
	}
	return "", fmt.Errorf("unknown dashboard mode %q", s)
}

// Snapshot is one loaded dataset with its precomputed summary. It is shared
// between callers and must not be modified.
type Snapshot struct {
	Dataset   domain.Dataset
	UpdatedAt time.Time
	Reviews   []domain.Review
	Summary   domain.Summary
}

type ReviewQuery struct {
	Restaurant string
	Sentiment  domain.Sentiment
	Limit      int
}

// DashboardService loads persisted reviews for presentation. The loaded
// snapshot is reused until the backing file's modification time changes
// or Invalidate is called.
type DashboardService struct {
	store domain.ReviewStore
	mode  DashboardMode

	mu   sync.Mutex
	snap *Snapshot
}

func NewDashboardService(store domain.ReviewStore, mode DashboardMode) *DashboardService {
	if mode == "" {
		mode = ModeProcessed
	}
	return &DashboardService{store: store, mode: mode}
}

func (s *DashboardService) Mode() DashboardMode { return s.mode }

// Invalidate drops the cached snapshot; the next read reloads from disk.
func (s *DashboardService) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// Snapshot returns the current dataset. An absent, empty or unreadable
// dataset yields an error matching domain.IsNoData.
func (s *DashboardService) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	datasets := []domain.Dataset{domain.DatasetEnriched}
	if s.mode == ModeFallback {
		datasets = append(datasets, domain.DatasetRaw)
	}

	var lastErr error
	for _, d := range datasets {
		snap, err := s.load(ctx, d)
		if err == nil {
			return snap, nil
		}
		if !domain.IsNoData(err) {
			return nil, err
		}
		lastErr = err
	}
	s.snap = nil
	return nil, lastErr
}

func (s *DashboardService) load(ctx context.Context, d domain.Dataset) (*Snapshot, error) {
	mt, err := s.store.ModTime(ctx, d)
	if err != nil {
		return nil, err
	}
	if s.snap != nil && s.snap.Dataset == d && s.snap.UpdatedAt.Equal(mt) {
		observability.ObserveCache("dashboard", "hit")
		return s.snap, nil
	}
	observability.ObserveCache("dashboard", "miss")

	var rs []domain.Review
	switch d {
	case domain.DatasetRaw:
		rs, err = s.store.LoadRaw(ctx)
	default:
		rs, err = s.store.LoadEnriched(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("%s dataset is empty: %w", d, domain.ErrNotFound)
	}

	s.snap = &Snapshot{Dataset: d, UpdatedAt: mt, Reviews: rs, Summary: Summarize(rs)}
	log.Info().Str("dataset", string(d)).Int("reviews", len(rs)).Time("updated_at", mt).Msg("dashboard data loaded")
	return s.snap, nil
}

func (s *DashboardService) Summary(ctx context.Context) (domain.Summary, time.Time, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Summary{}, time.Time{}, err
	}
	return snap.Summary, snap.UpdatedAt, nil
}

// Reviews returns the filtered reviews, truncated to Limit (<= 0 means all),
// and the number of matches before truncation.
func (s *DashboardService) Reviews(ctx context.Context, q ReviewQuery) ([]domain.Review, int, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := Filter(snap.Reviews, q.Restaurant, q.Sentiment)
	total := len(out)
	if q.Limit > 0 && total > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (s *DashboardService) Restaurants(ctx context.Context) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Restaurants(snap.Reviews), nil
}

package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
	"review_sentiment/internal/taskqueue"
)

type EnrichOptions struct {
	// Workers > 1 classifies on a bounded pool; pacing stays with the classifier.
	Workers int
	// OnlyMissing keeps records that already carry a non-Error classification.
	OnlyMissing bool
	// Progress is called after each record with (done, total). Calls are serialized.
	Progress func(done, total int)
}

type EnrichReport struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// Unprocessed records were left untouched because the run was canceled.
	Unprocessed int
	Duration    time.Duration
}

type EnrichmentService struct {
	classifier domain.Classifier
}

func NewEnrichmentService(c domain.Classifier) *EnrichmentService {
	return &EnrichmentService{classifier: c}
}

// Enrich classifies every review and returns a new slice in input order.
// Failed classifications are kept with the Error sentinel. If ctx is canceled
// midway, unprocessed records are returned unchanged.
func (s *EnrichmentService) Enrich(ctx context.Context, in []domain.Review, opts EnrichOptions) ([]domain.Review, EnrichReport) {
	start := time.Now()
	rep := EnrichReport{RunID: uuid.NewString(), Total: len(in)}
	out := make([]domain.Review, len(in))
	copy(out, in)

	var (
		done, failed, skipped, interrupted atomic.Int64
		progressMu                         sync.Mutex
	)
	tick := func() {
		n := int(done.Add(1))
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		opts.Progress(n, len(in))
		progressMu.Unlock()
	}

	err := taskqueue.Run(ctx, len(in), opts.Workers, func(ctx context.Context, i int) {
		r := out[i]
		if opts.OnlyMissing && r.Enriched() && r.Sentiment != domain.SentimentError {
			skipped.Add(1)
			tick()
			return
		}
		c := s.classifier.Classify(ctx, r.Text)
		if c.Sentiment == domain.SentimentError && ctx.Err() != nil {
			// canceled mid-call: the sentinel says nothing about the review
			interrupted.Add(1)
			return
		}
		if c.Sentiment == domain.SentimentError {
			failed.Add(1)
		}
		out[i] = r.WithClassification(c)
		tick()
	})

	rep.Skipped = int(skipped.Load())
	rep.Failed = int(failed.Load())
	rep.Succeeded = int(done.Load()) - rep.Skipped - rep.Failed
	rep.Unprocessed = rep.Total - int(done.Load())
	if err == nil && interrupted.Load() > 0 {
		err = ctx.Err()
	}
	rep.Duration = time.Since(start)

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err).Int("processed", int(done.Load()))
	}
	ev.Str("run_id", rep.RunID).
		Int("total", rep.Total).
		Int("succeeded", rep.Succeeded).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Int("unprocessed", rep.Unprocessed).
		Dur("took", rep.Duration).
		Msg("enrichment finished")
	return out, rep
}

/********** memoizing classifier **********/

// MemoClassifier caches successful classifications by text hash. Error
// results are never cached so a later run can retry them. Cache events are
// counted by the cache adapter itself.
type MemoClassifier struct {
	next  domain.Classifier
	cache domain.Cache
	ttl   time.Duration
}

func NewMemoClassifier(next domain.Classifier, cache domain.Cache, ttl time.Duration) *MemoClassifier {
	return &MemoClassifier{next: next, cache: cache, ttl: ttl}
}

func memoKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return "sentiment:" + hex.EncodeToString(sum[:])
}

func (m *MemoClassifier) Classify(ctx context.Context, text string) domain.Classification {
	key := memoKey(text)
	var c domain.Classification
	ok, err := m.cache.Get(ctx, key, &c)
	if err != nil {
		log.Debug().Err(err).Msg("memo lookup failed")
	}
	if ok && err == nil {
		return c
	}

	c = m.next.Classify(ctx, text)
	if c.Sentiment != domain.SentimentError {
		_ = m.cache.Set(ctx, key, c, int(m.ttl.Seconds()))
	}
	return c
}

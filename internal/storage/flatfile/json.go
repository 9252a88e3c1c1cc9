package flatfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
)

type rawRecord struct {
	Restaurant *string  `json:"restaurant"`
	Review     string   `json:"review"`
	Sentiment  string   `json:"sentiment,omitempty"`
	Polarity   *float64 `json:"polarity,omitempty"`
	Baseline   string   `json:"baseline,omitempty"`
	Source     string   `json:"source,omitempty"`
}

func (s *Store) SaveRaw(ctx context.Context, rs []domain.Review) error {
	out := make([]rawRecord, 0, len(rs))
	for _, r := range rs {
		rec := rawRecord{
			Restaurant: r.Restaurant,
			Review:     r.Text,
			Baseline:   string(r.Baseline),
			Source:     string(r.Source),
		}
		if r.Enriched() {
			rec.Sentiment = string(r.Sentiment)
			p := *r.Polarity
			rec.Polarity = &p
		}
		out = append(out, rec)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.rawPath, func(f *os.File) error {
		_, err := f.Write(b)
		return err
	})
}

func (s *Store) LoadRaw(ctx context.Context) ([]domain.Review, error) {
	b, err := readFile(s.rawPath)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.rawPath, domain.ErrSchemaMismatch, err)
	}

	out := make([]domain.Review, 0, len(items))
	skipped := 0
	for i, it := range items {
		var rec rawRecord
		if err := json.Unmarshal(it, &rec); err != nil || strings.TrimSpace(rec.Review) == "" {
			skipped++
			log.Warn().Str("file", s.rawPath).Int("index", i).Msg("skipping raw record without review text")
			continue
		}
		r := domain.Review{
			Text:     strings.TrimSpace(rec.Review),
			Baseline: baseline(rec.Baseline),
			Source:   domain.SourceKind(rec.Source),
		}
		if rec.Restaurant != nil {
			r.Restaurant = ptrStr(strings.TrimSpace(*rec.Restaurant))
		}
		r.Sentiment, r.Polarity = reconcile(rec.Sentiment, rec.Polarity)
		out = append(out, r)
	}
	if skipped > 0 {
		log.Warn().Str("file", s.rawPath).Int("skipped", skipped).Msg("raw load skipped records")
	}
	return out, nil
}

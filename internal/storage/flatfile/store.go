package flatfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"review_sentiment/internal/domain"
)

// Store persists reviews as flat files: raw reviews as a JSON array, enriched
// reviews as a CSV table (tab-separated when the path ends in .tsv).
type Store struct {
	rawPath      string
	enrichedPath string
}

func New(rawPath, enrichedPath string) *Store {
	return &Store{rawPath: rawPath, enrichedPath: enrichedPath}
}

func (s *Store) RawPath() string      { return s.rawPath }
func (s *Store) EnrichedPath() string { return s.enrichedPath }

func (s *Store) path(d domain.Dataset) string {
	if d == domain.DatasetRaw {
		return s.rawPath
	}
	return s.enrichedPath
}

func (s *Store) ModTime(ctx context.Context, d domain.Dataset) (time.Time, error) {
	st, err := os.Stat(s.path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// writeAtomic writes via a temp file in the target directory and renames it
// into place, so readers never observe a half-written file.
func writeAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// reconcile enforces the enrichment pairing on load: Error always carries 0.0,
// any other label needs an in-range polarity, otherwise the record is unenriched.
func reconcile(label string, polarity *float64) (domain.Sentiment, *float64) {
	s, ok := domain.ParseSentiment(label)
	if !ok {
		return domain.SentimentUnset, nil
	}
	if s == domain.SentimentError {
		zero := 0.0
		return s, &zero
	}
	if polarity == nil || math.IsNaN(*polarity) || *polarity < -1 || *polarity > 1 {
		return domain.SentimentUnset, nil
	}
	p := *polarity
	return s, &p
}

func baseline(label string) domain.Sentiment {
	s, ok := domain.ParseSentiment(label)
	if !ok || s == domain.SentimentError {
		return domain.SentimentUnset
	}
	return s
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

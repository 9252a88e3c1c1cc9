package flatfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"review_sentiment/internal/domain"
)

// Column names are consumed by the dashboard; keep them stable.
var enrichedColumns = []string{"restaurant", "review", "sentiment", "polarity", "baseline"}

func delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func (s *Store) SaveEnriched(ctx context.Context, rs []domain.Review) error {
	return writeAtomic(s.enrichedPath, func(f *os.File) error {
		w := csv.NewWriter(f)
		w.Comma = delimiter(s.enrichedPath)
		if err := w.Write(enrichedColumns); err != nil {
			return err
		}
		for _, r := range rs {
			sentiment, polarity := "", ""
			if r.Enriched() {
				sentiment = string(r.Sentiment)
				polarity = strconv.FormatFloat(*r.Polarity, 'f', -1, 64)
			}
			row := []string{r.RestaurantName(), r.Text, sentiment, polarity, string(r.Baseline)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func (s *Store) LoadEnriched(ctx context.Context) ([]domain.Review, error) {
	b, err := readFile(s.enrichedPath)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = delimiter(s.enrichedPath)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty table: %w", s.enrichedPath, domain.ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("%s: %w: %v", s.enrichedPath, domain.ErrSchemaMismatch, err)
	}
	cols := indexColumns(header)
	if _, ok := cols["review"]; !ok {
		return nil, fmt.Errorf("%s: missing review column: %w", s.enrichedPath, domain.ErrSchemaMismatch)
	}

	var out []domain.Review
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.enrichedPath, err)
		}
		text := strings.TrimSpace(cell(row, cols, "review"))
		if text == "" {
			continue
		}
		rv := domain.Review{
			Restaurant: ptrStr(strings.TrimSpace(cell(row, cols, "restaurant"))),
			Text:       text,
			Baseline:   baseline(cell(row, cols, "baseline")),
		}
		var polarity *float64
		if ps := strings.TrimSpace(cell(row, cols, "polarity")); ps != "" {
			if f, err := strconv.ParseFloat(ps, 64); err == nil {
				polarity = &f
			}
		}
		rv.Sentiment, rv.Polarity = reconcile(cell(row, cols, "sentiment"), polarity)
		out = append(out, rv)
	}
	return out, nil
}

// indexColumns maps lower-cased header names to positions; first occurrence wins.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[k]; !dup {
			cols[k] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

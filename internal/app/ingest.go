package app

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reviewAliases = map[string][]string{
	"review":     {"review", "text", "comment", "content", "body"},
	"restaurant": {"restaurant", "restaurant_name", "name"},
	"liked":      {"liked", "label", "like"},
}

/********** tiny helpers **********/

// lookupAlias returns the first present value for a named alias set,
// matching keys case-insensitively ("Review" and "review" are the same column).
func lookupAlias(m map[string]any, key string) (any, bool) {
	for _, alias := range reviewAliases[key] {
		for k, v := range m {
			if strings.EqualFold(k, alias) && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func aliasString(m map[string]any, key string) string {
	if v, ok := lookupAlias(m, key); ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// likedLabel maps a 0/1 label (number, bool or string) to the baseline sentiment.
func likedLabel(v any) (domain.Sentiment, bool) {
	switch t := v.(type) {
	case float64:
		switch t {
		case 1:
			return domain.SentimentPositive, true
		case 0:
			return domain.SentimentNegative, true
		}
	case bool:
		if t {
			return domain.SentimentPositive, true
		}
		return domain.SentimentNegative, true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return likedLabel(float64(n))
		}
	}
	return domain.SentimentUnset, false
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StripFences removes a surrounding markdown code fence (``` or ```json).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:] // drop the info string, e.g. "json"
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

/********** ingestion **********/

type IngestService struct{}

func NewIngestService() *IngestService { return &IngestService{} }

// Normalize converts one raw source into canonical reviews. Bad records are
// skipped and counted; only an unparseable top-level container is an error.
func (s *IngestService) Normalize(src domain.RawSource) ([]domain.Review, domain.IngestReport, error) {
	var (
		out     []domain.Review
		skipped int
		err     error
	)
	switch src.Kind {
	case domain.SourceLLMBatch:
		out, skipped, err = normalizeLLMBatch(src.Body, src.Restaurant)
	case domain.SourceScraped:
		out, skipped = normalizeScraped(src.Pages)
	case domain.SourceCorpus:
		out, skipped, err = normalizeCorpus(src.Body)
	default:
		err = &domain.MalformedSourceError{Kind: src.Kind, Reason: "unknown source kind"}
	}
	rep := domain.IngestReport{Kind: src.Kind, Accepted: len(out), Skipped: skipped}
	if err != nil {
		return nil, rep, err
	}
	if skipped > 0 {
		log.Warn().Str("source", string(src.Kind)).Int("skipped", skipped).Msg("ingestion skipped records")
	}
	observability.ObserveIngest(src.Kind, rep.Accepted, rep.Skipped)
	return out, rep, nil
}

func decodeArray(kind domain.SourceKind, body []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(StripFences(string(body))), &items); err != nil {
		return nil, &domain.MalformedSourceError{Kind: kind, Reason: "expected a JSON array of records", Err: err}
	}
	return items, nil
}

func normalizeLLMBatch(body []byte, defaultRestaurant string) ([]domain.Review, int, error) {
	items, err := decodeArray(domain.SourceLLMBatch, body)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Review, 0, len(items))
	skipped := 0
	for i, it := range items {
		var m map[string]any
		if err := json.Unmarshal(it, &m); err != nil || m == nil {
			skipped++
			log.Warn().Int("index", i).Msg("llm entry is not an object")
			continue
		}
		text := aliasString(m, "review")
		if text == "" {
			skipped++
			log.Warn().Int("index", i).Msg("llm entry has no review text")
			continue
		}
		restaurant := aliasString(m, "restaurant")
		if restaurant == "" {
			restaurant = strings.TrimSpace(defaultRestaurant)
		}
		out = append(out, domain.Review{
			Restaurant: ptrStr(restaurant),
			Text:       text,
			Source:     domain.SourceLLMBatch,
		})
	}
	return out, skipped, nil
}

func normalizeScraped(pages []domain.ScrapedPage) ([]domain.Review, int) {
	var out []domain.Review
	skipped := 0
	for _, p := range pages {
		name := strings.TrimSpace(p.Restaurant)
		var texts []string
		for _, f := range p.Fragments {
			if t := strings.TrimSpace(f); t != "" {
				texts = append(texts, t)
			} else {
				skipped++
			}
		}
		if name == "" || len(texts) == 0 {
			log.Warn().Str("restaurant", name).Str("url", p.URL).Msg("no reviews found, skipping restaurant")
			continue
		}
		for _, t := range texts {
			out = append(out, domain.Review{Restaurant: ptrStr(name), Text: t, Source: domain.SourceScraped})
		}
	}
	return out, skipped
}

func normalizeCorpus(body []byte) ([]domain.Review, int, error) {
	trimmed := bytes.TrimSpace([]byte(StripFences(string(body))))
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		items, err := decodeArray(domain.SourceCorpus, trimmed)
		if err != nil {
			return nil, 0, err
		}
		rows := make([]map[string]any, 0, len(items))
		skipped := 0
		for _, it := range items {
			var m map[string]any
			if err := json.Unmarshal(it, &m); err != nil || m == nil {
				skipped++
				continue
			}
			rows = append(rows, m)
		}
		out, s := corpusRows(rows)
		return out, skipped + s, nil
	}

	rows, err := readTSV(trimmed)
	if err != nil {
		return nil, 0, err
	}
	out, skipped := corpusRows(rows)
	return out, skipped, nil
}

func corpusRows(rows []map[string]any) ([]domain.Review, int) {
	out := make([]domain.Review, 0, len(rows))
	skipped := 0
	for i, m := range rows {
		text := aliasString(m, "review")
		raw, _ := lookupAlias(m, "liked")
		label, ok := likedLabel(raw)
		if text == "" || !ok {
			skipped++
			log.Warn().Int("index", i).Bool("has_review", text != "").Msg("skipping corpus record")
			continue
		}
		out = append(out, domain.Review{Text: text, Baseline: label, Source: domain.SourceCorpus})
	}
	return out, skipped
}

// readTSV reads a header + rows table into maps keyed by header name.
func readTSV(body []byte) ([]map[string]any, error) {
	r := csv.NewReader(bufio.NewReader(bytes.NewReader(body)))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, &domain.MalformedSourceError{Kind: domain.SourceCorpus, Reason: "missing header row", Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	hdr := make(map[string]any, len(header))
	for _, h := range header {
		hdr[h] = ""
	}
	if _, ok := lookupAlias(hdr, "review"); !ok {
		return nil, &domain.MalformedSourceError{Kind: domain.SourceCorpus, Reason: "header has no review column"}
	}

	var rows []map[string]any
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.MalformedSourceError{Kind: domain.SourceCorpus, Reason: "unreadable table", Err: err}
		}
		m := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(rec) {
				m[h] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

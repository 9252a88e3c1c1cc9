package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_sentiment/internal/shared"
)

func classifierServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Text, "Loved"):
			_, _ = w.Write([]byte(`{"sentiment":"Positive","polarity":0.8}`))
		case strings.Contains(req.Text, "boom"):
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"sentiment":"Negative","polarity":-0.6}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, cfg shared.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(cfg, &out).RunContext(context.Background(), append([]string{"reviewctl"}, args...))
	return out.String(), err
}

func TestPipeline_CorpusIngestEnrichSummarize(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "Restaurant_Reviews.tsv")
	require.NoError(t, os.WriteFile(corpus, []byte(
		"Review\tLiked\nWow... Loved this place.\t1\nCrust is not good.\t0\nboom\t1\n\t1\n"), 0o644))

	cfg := shared.Config{
		RawPath:      filepath.Join(dir, "raw_reviews.json"),
		EnrichedPath: filepath.Join(dir, "restaurant_reviews.csv"),
		LogLevel:     "error",
	}
	srv := classifierServer(t)

	out, err := run(t, cfg, "ingest", "--source", "corpus", "--input", corpus)
	require.NoError(t, err)
	assert.Contains(t, out, "accepted=3 skipped=1")

	out, err = run(t, cfg, "enrich", "--endpoint", srv.URL, "--interval", "0s", "--cache", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded=2 error=1")

	out, err = run(t, cfg, "summarize")
	require.NoError(t, err)
	assert.Contains(t, out, "reviews: 3")
	assert.Contains(t, out, "baseline agreement: 2/2")

	out, err = run(t, cfg, "summarize", "--format", "json")
	require.NoError(t, err)
	var sum struct {
		Unenriched int `json:"unenriched"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 0, sum.Unenriched)
}

func TestIngest_LLMBatchFromFile(t *testing.T) {
	dir := t.TempDir()
	batch := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte("```json\n[{\"review\":\"Loved the thali\"}]\n```"), 0o644))
	cfg := shared.Config{RawPath: filepath.Join(dir, "raw.json"), EnrichedPath: filepath.Join(dir, "out.csv"), LogLevel: "error"}

	_, err := run(t, cfg, "ingest", "-s", "llm", "-i", batch, "--restaurant", "Tomatoes, Piplod")
	require.NoError(t, err)
	out, err := run(t, cfg, "ingest", "-s", "llm", "-i", batch, "--restaurant", "Level 5, Vesu", "--append")
	require.NoError(t, err)
	assert.Contains(t, out, "total=2")

	b, err := os.ReadFile(cfg.RawPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Tomatoes, Piplod")
	assert.Contains(t, string(b), "Level 5, Vesu")
}

func TestSummarize_EmptyState(t *testing.T) {
	dir := t.TempDir()
	cfg := shared.Config{RawPath: filepath.Join(dir, "raw.json"), EnrichedPath: filepath.Join(dir, "out.csv"), LogLevel: "error"}
	out, err := run(t, cfg, "summarize")
	require.NoError(t, err)
	assert.Contains(t, out, "No data available")
}

func TestIngest_UnknownSource(t *testing.T) {
	dir := t.TempDir()
	cfg := shared.Config{RawPath: filepath.Join(dir, "raw.json"), EnrichedPath: filepath.Join(dir, "out.csv"), LogLevel: "error"}
	_, err := run(t, cfg, "ingest", "--source", "carrier-pigeon")
	assert.Error(t, err)
}

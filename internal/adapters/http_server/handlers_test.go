package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "review_sentiment/internal/adapters/http_server"
	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
	"review_sentiment/internal/storage/flatfile"
)

func newTestServer(t *testing.T, seed []domain.Review) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	store := flatfile.New(filepath.Join(dir, "raw_reviews.json"), filepath.Join(dir, "restaurant_reviews.csv"))
	if seed != nil {
		require.NoError(t, store.SaveEnriched(context.Background(), seed))
	}
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{D: app.NewDashboardService(store, app.ModeProcessed)})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func seedReviews() []domain.Review {
	a := "A"
	b := "B"
	p := func(f float64) *float64 { return &f }
	return []domain.Review{
		{Restaurant: &a, Text: "Great food", Sentiment: domain.SentimentPositive, Polarity: p(0.8)},
		{Restaurant: &a, Text: "Bad service", Sentiment: domain.SentimentNegative, Polarity: p(-0.6)},
		{Restaurant: &b, Text: "timeout", Sentiment: domain.SentimentError, Polarity: p(0)},
	}
}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmptyStateIsProblem404(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/v1/summary", "/v1/reviews", "/v1/restaurants"} {
		resp := get(t, ts.URL+path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"), path)

		var pr map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
		assert.Contains(t, pr["detail"], "reviewctl enrich")
	}
}

func TestSummaryWithETag(t *testing.T) {
	ts := newTestServer(t, seedReviews())

	resp := get(t, ts.URL+"/v1/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))

	var body struct {
		Mode        string                    `json:"mode"`
		Dataset     string                    `json:"dataset"`
		Global      domain.AggregateMetrics   `json:"global"`
		Restaurants []domain.AggregateMetrics `json:"restaurants"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "processed", body.Mode)
	assert.Equal(t, "enriched", body.Dataset)
	assert.Equal(t, 3, body.Global.ReviewCount)
	require.Len(t, body.Restaurants, 2)
	assert.Equal(t, "B", body.Restaurants[0].Restaurant)
	assert.InDelta(t, 0.1, body.Restaurants[1].AveragePolarity, 1e-9)

	resp2 := get(t, ts.URL+"/v1/summary", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
}

func TestListReviews(t *testing.T) {
	ts := newTestServer(t, seedReviews())

	resp := get(t, ts.URL+"/v1/reviews?restaurant=A&sentiment=positive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Great food", page.Items[0]["review"])

	resp = get(t, ts.URL+"/v1/reviews?limit=1", nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 1, page.Count)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Total, "total reports matches before the limit")
}

func TestListReviews_BadParams(t *testing.T) {
	ts := newTestServer(t, seedReviews())
	for _, q := range []string{"?limit=0", "?limit=abc", "?limit=501", "?sentiment=happy"} {
		resp := get(t, ts.URL+"/v1/reviews"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestListRestaurants(t *testing.T) {
	ts := newTestServer(t, seedReviews())
	resp := get(t, ts.URL+"/v1/restaurants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"A", "B"}, out["restaurants"])
}

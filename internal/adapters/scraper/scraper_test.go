package scraper_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_sentiment/internal/adapters/scraper"
)

const page = `<html><body>
<div class="sc-1q7bklc-1"><p>Amazing  paneer tikka,
 would come again.</p></div>
<div class="sc-1q7bklc-1"><span>rating only</span></div>
<div class="sc-1q7bklc-1"><p>   </p></div>
<div class="other"><p>Not a review</p></div>
<div class="sc-1q7bklc-1"><p>Service was slow.</p></div>
</body></html>`

func newFetcher(t *testing.T) *scraper.Fetcher {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return scraper.New(client, "", 0)
}

func TestExtract_DefaultSelector(t *testing.T) {
	got, err := scraper.Extract(strings.NewReader(page), scraper.DefaultSelector)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amazing paneer tikka, would come again.", "Service was slow."}, got)
}

func TestFetch_SendsBrowserHeaders(t *testing.T) {
	f := newFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://example.test/ziba/reviews",
		func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla/5.0")
			assert.Equal(t, "en-US,en;q=0.5", req.Header.Get("Accept-Language"))
			return httpmock.NewStringResponse(http.StatusOK, page), nil
		})

	got, err := f.Fetch(context.Background(), "https://example.test/ziba/reviews")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetch_EmptyPage(t *testing.T) {
	f := newFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://example.test/empty",
		httpmock.NewStringResponder(http.StatusOK, "<html><body>No reviews yet</body></html>"))

	got, err := f.Fetch(context.Background(), "https://example.test/empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_BadStatus(t *testing.T) {
	f := newFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://example.test/blocked",
		httpmock.NewStringResponder(http.StatusForbidden, "denied"))

	_, err := f.Fetch(context.Background(), "https://example.test/blocked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

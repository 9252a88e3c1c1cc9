package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
)

var targets = []domain.Target{
	{Name: "Ziba Restaurant", Location: "Adajan", URL: "https://example.test/ziba"},
	{Name: "Sasuma", Location: "Athwalines", URL: "https://example.test/sasuma"},
	{Name: "Manhar Dairy", Location: "Ghod Dod Road"},
}

func TestCollect_GenerateContinuesPastFailures(t *testing.T) {
	gen := &fakeGenerator{bodies: map[string]string{
		"Ziba Restaurant, Adajan": "```json\n[{\"review\":\"Lovely ambience\"},{\"review\":\"\"}]\n```",
		"Sasuma, Athwalines":      "not json",
	}}
	svc := app.NewCollectService(gen, nil, app.NewIngestService(), 2, 0)

	rs, rep, err := svc.Generate(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Ziba Restaurant, Adajan", rs[0].RestaurantName())
	assert.Equal(t, 1, rep.Accepted)
	assert.Equal(t, 1, rep.Skipped)
}

func TestCollect_Scrape(t *testing.T) {
	fetch := &fakeFetcher{pages: map[string][]string{
		"https://example.test/ziba": {"Paneer was great", "Service slow"},
	}}
	svc := app.NewCollectService(nil, fetch, app.NewIngestService(), 0, 0)

	rs, rep, err := svc.Scrape(context.Background(), targets)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	for _, r := range rs {
		assert.Equal(t, "Ziba Restaurant", r.RestaurantName())
		assert.Equal(t, domain.SourceScraped, r.Source)
	}
}

func TestCollect_NotConfigured(t *testing.T) {
	svc := app.NewCollectService(nil, nil, app.NewIngestService(), 0, 0)
	_, _, err := svc.Generate(context.Background(), targets)
	assert.Error(t, err)
	_, _, err = svc.Scrape(context.Background(), targets)
	assert.Error(t, err)
}

func TestCollect_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := app.NewCollectService(&fakeGenerator{}, nil, app.NewIngestService(), 0, 0)
	_, _, err := svc.Generate(ctx, targets)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollect_GeneratePacesRequests(t *testing.T) {
	gen := &fakeGenerator{bodies: map[string]string{}}
	for _, tg := range targets {
		gen.bodies[tg.Label()] = `[{"review":"ok"}]`
	}
	svc := app.NewCollectService(gen, nil, app.NewIngestService(), 1, 60*time.Millisecond)

	start := time.Now()
	rs, _, err := svc.Generate(context.Background(), targets)
	require.NoError(t, err)
	assert.Len(t, rs, 3)
	// three requests, two waits
	assert.GreaterOrEqual(t, time.Since(start), 110*time.Millisecond)
}

package app_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
)

func TestNormalize_LLMBatch(t *testing.T) {
	body := "```json\n" +
		`[{"review":"  Great thali  "},{"text":"Slow service","restaurant":" Other "},{"rating":5},3]` +
		"\n```"
	rs, rep, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind:       domain.SourceLLMBatch,
		Body:       []byte(body),
		Restaurant: "Ziba Restaurant, Adajan",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestReport{Kind: domain.SourceLLMBatch, Accepted: 2, Skipped: 2}, rep)
	require.Len(t, rs, 2)

	assert.Equal(t, "Great thali", rs[0].Text)
	assert.Equal(t, "Ziba Restaurant, Adajan", rs[0].RestaurantName())
	assert.Equal(t, "Other", rs[1].RestaurantName())
	for _, r := range rs {
		assert.False(t, r.Enriched())
		assert.Equal(t, domain.SourceLLMBatch, r.Source)
	}
}

func TestNormalize_NotAnArray(t *testing.T) {
	_, _, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind: domain.SourceLLMBatch,
		Body: []byte(`{"review":"single object"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedSource))

	var mse *domain.MalformedSourceError
	require.True(t, errors.As(err, &mse))
	assert.Equal(t, domain.SourceLLMBatch, mse.Kind)
}

func TestNormalize_Scraped(t *testing.T) {
	rs, rep, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind: domain.SourceScraped,
		Pages: []domain.ScrapedPage{
			{Restaurant: "Barbeque Nation", URL: "https://example.test/bbq", Fragments: []string{"Loved it", "   ", "Too loud"}},
			{Restaurant: "Empty Place", URL: "https://example.test/empty", Fragments: nil},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	assert.Equal(t, 1, rep.Skipped)
	for _, r := range rs {
		assert.Equal(t, "Barbeque Nation", r.RestaurantName())
		assert.Equal(t, domain.SentimentUnset, r.Sentiment)
	}
}

func TestNormalize_CorpusSkipsRecordWithoutReview(t *testing.T) {
	rs, rep, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind: domain.SourceCorpus,
		Body: []byte(`[{"liked":1},{"review":"Wow... Loved this place.","liked":1}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Accepted)
	require.Len(t, rs, 1)
	assert.Nil(t, rs[0].Restaurant)
	assert.Equal(t, domain.SentimentPositive, rs[0].Baseline)
	assert.Equal(t, domain.SentimentUnset, rs[0].Sentiment)
}

func TestNormalize_CorpusLabels(t *testing.T) {
	rs, rep, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind: domain.SourceCorpus,
		Body: []byte(`[{"Review":"Crust is not good.","Liked":0},{"review":"Nice","liked":"1"},{"review":"Hmm","liked":2}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, domain.SentimentNegative, rs[0].Baseline)
	assert.Equal(t, domain.SentimentPositive, rs[1].Baseline)
}

func TestNormalize_CorpusTSV(t *testing.T) {
	body := "Review\tLiked\n" +
		"Wow... Loved this place.\t1\n" +
		"Crust is not good.\t0\n" +
		"\t1\n"
	rs, rep, err := app.NewIngestService().Normalize(domain.RawSource{Kind: domain.SourceCorpus, Body: []byte(body)})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, "Crust is not good.", rs[1].Text)
	assert.Equal(t, domain.SentimentNegative, rs[1].Baseline)
}

func TestNormalize_CorpusTSVWithoutReviewColumn(t *testing.T) {
	_, _, err := app.NewIngestService().Normalize(domain.RawSource{
		Kind: domain.SourceCorpus,
		Body: []byte("foo\tbar\n1\t2\n"),
	})
	assert.ErrorIs(t, err, domain.ErrMalformedSource)
}

func TestNormalize_UnknownKind(t *testing.T) {
	_, _, err := app.NewIngestService().Normalize(domain.RawSource{Kind: "fax"})
	assert.ErrorIs(t, err, domain.ErrMalformedSource)
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		`[1]`:                   `[1]`,
		"```json\n[1]\n```":     `[1]`,
		"```\n[{\"a\":1}]\n```": `[{"a":1}]`,
		"```[1]```":             `[1]`,
		"  ```JSON\n[]\n```  ":  `[]`,
	}
	for in, want := range cases {
		assert.Equal(t, want, app.StripFences(in), "input %q", in)
	}
}

package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"review_sentiment/internal/domain"
)

// ---- fakes ----

type fakeClassifier struct {
	mu     sync.Mutex
	byText map[string]domain.Classification
	calls  []string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) domain.Classification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if c, ok := f.byText[text]; ok {
		return c
	}
	return domain.ErrorClassification
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	raw, enriched       []domain.Review
	rawErr, enrichedErr error
	rawMT, enrichedMT   time.Time
	loads               int
}

func (f *fakeStore) SaveRaw(ctx context.Context, rs []domain.Review) error {
	f.raw = rs
	return nil
}
func (f *fakeStore) LoadRaw(ctx context.Context) ([]domain.Review, error) {
	f.loads++
	return f.raw, f.rawErr
}
func (f *fakeStore) SaveEnriched(ctx context.Context, rs []domain.Review) error {
	f.enriched = rs
	return nil
}
func (f *fakeStore) LoadEnriched(ctx context.Context) ([]domain.Review, error) {
	f.loads++
	return f.enriched, f.enrichedErr
}
func (f *fakeStore) ModTime(ctx context.Context, d domain.Dataset) (time.Time, error) {
	switch d {
	case domain.DatasetRaw:
		if f.rawErr != nil {
			return time.Time{}, f.rawErr
		}
		return f.rawMT, nil
	default:
		if f.enrichedErr != nil {
			return time.Time{}, f.enrichedErr
		}
		return f.enrichedMT, nil
	}
}

type fakeGenerator struct {
	bodies map[string]string
}

func (f *fakeGenerator) Generate(ctx context.Context, restaurant string, count int) (string, error) {
	b, ok := f.bodies[restaurant]
	if !ok {
		return "", errors.New("quota exceeded")
	}
	return b, nil
}

type fakeFetcher struct {
	pages map[string][]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]string, error) {
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("status 403")
	}
	return p, nil
}

func ptr[T any](v T) *T { return &v }

func enriched(restaurant *string, text string, s domain.Sentiment, p float64) domain.Review {
	return domain.Review{Restaurant: restaurant, Text: text, Sentiment: s, Polarity: &p}
}

package domain

import (
	"context"
	"time"
)

type ReviewStore interface {
	// Raw (unenriched) reviews, JSON
	SaveRaw(ctx context.Context, rs []Review) error
	LoadRaw(ctx context.Context) ([]Review, error)

	// Enriched reviews, CSV/TSV
	SaveEnriched(ctx context.Context, rs []Review) error
	LoadEnriched(ctx context.Context) ([]Review, error)

	// ModTime of the file backing a dataset; ErrNotFound if absent.
	ModTime(ctx context.Context, d Dataset) (time.Time, error)
}

type Dataset string

const (
	DatasetRaw      Dataset = "raw"
	DatasetEnriched Dataset = "enriched"
)

// Classifier never fails: a failed call yields ErrorClassification.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

type ReviewGenerator interface {
	Generate(ctx context.Context, restaurant string, count int) (string, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Target is a restaurant to collect reviews for.
type Target struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	URL      string `yaml:"url"`
}

// Label is the name shown to the LLM and used as the restaurant key for
// generated reviews, e.g. "Ziba Restaurant, Adajan".
func (t Target) Label() string {
	if t.Location == "" {
		return t.Name
	}
	return t.Name + ", " + t.Location
}

package domain

import "strings"

type Sentiment string

const (
	SentimentUnset    Sentiment = ""
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentError    Sentiment = "Error"
)

// ParseSentiment maps a label to its canonical form, case-insensitively.
// Unknown labels yield (SentimentUnset, false).
func ParseSentiment(s string) (Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive, true
	case "negative":
		return SentimentNegative, true
	case "neutral":
		return SentimentNeutral, true
	case "error":
		return SentimentError, true
	}
	return SentimentUnset, false
}

type SourceKind string

const (
	SourceLLMBatch SourceKind = "llm"
	SourceScraped  SourceKind = "scrape"
	SourceCorpus   SourceKind = "corpus"
)

func ParseSourceKind(s string) (SourceKind, bool) {
	switch k := SourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SourceLLMBatch, SourceScraped, SourceCorpus:
		return k, true
	}
	return "", false
}

// Review is the canonical record every source is normalized into.
// Sentiment and Polarity are set together by enrichment; Baseline only
// carries the corpus ground-truth label.
type Review struct {
	Restaurant *string
	Text       string
	Sentiment  Sentiment
	Polarity   *float64
	Baseline   Sentiment
	Source     SourceKind
}

func (r Review) Enriched() bool {
	return r.Sentiment != SentimentUnset && r.Polarity != nil
}

func (r Review) RestaurantName() string {
	if r.Restaurant == nil {
		return ""
	}
	return *r.Restaurant
}

// WithClassification returns a copy of r carrying c. Error always pairs with 0.0.
func (r Review) WithClassification(c Classification) Review {
	p := c.Polarity
	if c.Sentiment == SentimentError {
		p = 0
	}
	r.Sentiment = c.Sentiment
	r.Polarity = &p
	return r
}

type Classification struct {
	Sentiment Sentiment
	Polarity  float64
}

// ErrorClassification is the sentinel substituted for a failed remote call.
var ErrorClassification = Classification{Sentiment: SentimentError, Polarity: 0}

// ScrapedPage is the review text extracted from one restaurant's page.
type ScrapedPage struct {
	Restaurant string
	URL        string
	Fragments  []string
}

// RawSource is a tagged input: Body holds JSON or TSV for the LLM batch and
// corpus kinds, Pages holds extracted fragments for the scraped kind.
type RawSource struct {
	Kind       SourceKind
	Body       []byte
	Pages      []ScrapedPage
	Restaurant string // default for LLM entries that omit one
}

type IngestReport struct {
	Kind     SourceKind
	Accepted int
	Skipped  int
}

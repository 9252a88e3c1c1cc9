package domain

// AggregateMetrics is derived from enriched reviews and never persisted.
type AggregateMetrics struct {
	Restaurant         string  `json:"restaurant,omitempty"`
	ReviewCount        int     `json:"review_count"`
	AveragePolarity    float64 `json:"average_polarity"`
	PositivePercentage float64 `json:"positive_percentage"`
}

type PolarityTotals struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Net      float64 `json:"net"`
}

// Agreement compares classifier output with corpus baseline labels.
type Agreement struct {
	Compared int     `json:"compared"`
	Matched  int     `json:"matched"`
	Rate     float64 `json:"rate"`
}

type Summary struct {
	Global       AggregateMetrics   `json:"global"`
	Restaurants  []AggregateMetrics `json:"restaurants"`
	Distribution map[Sentiment]int  `json:"distribution"`
	Unenriched   int                `json:"unenriched"`
	Polarity     PolarityTotals     `json:"polarity"`
	Agreement    Agreement          `json:"agreement"`
}

package app

import (
	"sort"

	"review_sentiment/internal/domain"
)

type group struct {
	polarities []float64
	positives  int
}

func (g *group) add(r domain.Review) {
	g.polarities = append(g.polarities, *r.Polarity)
	if r.Sentiment == domain.SentimentPositive {
		g.positives++
	}
}

// metrics sums sorted polarities so the result does not depend on input order.
func (g *group) metrics(name string) domain.AggregateMetrics {
	n := len(g.polarities)
	m := domain.AggregateMetrics{Restaurant: name, ReviewCount: n}
	if n == 0 {
		return m
	}
	sort.Float64s(g.polarities)
	var sum float64
	for _, p := range g.polarities {
		sum += p
	}
	m.AveragePolarity = sum / float64(n)
	m.PositivePercentage = 100 * float64(g.positives) / float64(n)
	return m
}

// Summarize aggregates enriched reviews globally and per restaurant.
// Reviews without a restaurant only count toward the global figures;
// unenriched reviews are only counted in Unenriched.
func Summarize(rs []domain.Review) domain.Summary {
	var (
		global  group
		byName  = map[string]*group{}
		out     = domain.Summary{Distribution: map[domain.Sentiment]int{}}
		pos     []float64
		neg     []float64
		matched int
	)
	for _, r := range rs {
		if !r.Enriched() {
			out.Unenriched++
			continue
		}
		global.add(r)
		out.Distribution[r.Sentiment]++

		switch p := *r.Polarity; {
		case p > 0:
			pos = append(pos, p)
		case p < 0:
			neg = append(neg, p)
		}

		if r.Baseline != domain.SentimentUnset && r.Sentiment != domain.SentimentError {
			out.Agreement.Compared++
			if r.Baseline == r.Sentiment {
				matched++
			}
		}

		if r.Restaurant == nil {
			continue
		}
		g, ok := byName[*r.Restaurant]
		if !ok {
			g = &group{}
			byName[*r.Restaurant] = g
		}
		g.add(r)
	}

	out.Global = global.metrics("")
	out.Restaurants = make([]domain.AggregateMetrics, 0, len(byName))
	for name, g := range byName {
		out.Restaurants = append(out.Restaurants, g.metrics(name))
	}
	sort.Slice(out.Restaurants, func(i, j int) bool {
		a, b := out.Restaurants[i], out.Restaurants[j]
		if a.AveragePolarity != b.AveragePolarity {
			return a.AveragePolarity < b.AveragePolarity
		}
		return a.Restaurant < b.Restaurant
	})

	out.Polarity.Positive = sortedSum(pos)
	out.Polarity.Negative = sortedSum(neg)
	out.Polarity.Net = out.Polarity.Positive + out.Polarity.Negative

	out.Agreement.Matched = matched
	if out.Agreement.Compared > 0 {
		out.Agreement.Rate = float64(matched) / float64(out.Agreement.Compared)
	}
	return out
}

func sortedSum(xs []float64) float64 {
	sort.Float64s(xs)
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// Filter keeps reviews matching restaurant and sentiment; empty values match anything.
func Filter(rs []domain.Review, restaurant string, sentiment domain.Sentiment) []domain.Review {
	out := make([]domain.Review, 0, len(rs))
	for _, r := range rs {
		if restaurant != "" && r.RestaurantName() != restaurant {
			continue
		}
		if sentiment != domain.SentimentUnset && r.Sentiment != sentiment {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Restaurants lists distinct restaurant names in ascending order.
func Restaurants(rs []domain.Review) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range rs {
		if r.Restaurant == nil {
			continue
		}
		if _, ok := seen[*r.Restaurant]; !ok {
			seen[*r.Restaurant] = struct{}{}
			out = append(out, *r.Restaurant)
		}
	}
	sort.Strings(out)
	return out
}

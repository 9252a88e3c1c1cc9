package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"review_sentiment/internal/adapters/observability"
)

// DefaultSelector matches review paragraphs on the listing pages we scrape.
const DefaultSelector = "div.sc-1q7bklc-1 p"

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
}

type Fetcher struct {
	client   *http.Client
	selector string
	rl       *rate.Limiter
}

// New builds a Fetcher; interval spaces consecutive page requests.
func New(client *http.Client, selector string, interval time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelector
	}
	rl := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		rl = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Fetcher{client: client, selector: selector, rl: rl}
}

// Fetch downloads url and returns the non-empty review texts it contains.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]string, error) {
	if err := f.rl.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		observability.ObserveExternal("scraper", "page", 0, time.Since(start))
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("scraper", "page", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}
	return Extract(io.LimitReader(resp.Body, 10<<20), f.selector)
}

// Extract returns the trimmed text of every element matching selector.
func Extract(r io.Reader, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			out = append(out, t)
		}
	})
	return out, nil
}

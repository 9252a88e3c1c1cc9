package sentiment

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

const DefaultEndpoint = "https://sentiment-api-service-fzdu57t2fa-uc.a.run.app/predict"

type Options struct {
	// Interval is the minimum spacing between calls; <=0 disables pacing.
	Interval time.Duration
	Timeout  time.Duration
	// Retries on 429/5xx/network errors. Zero keeps one attempt per review.
	Retries    int
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	hc       *http.Client
	rl       *rate.Limiter
	retries  int
}

func New(endpoint string, opts Options) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("sentiment endpoint is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	rl := rate.NewLimiter(rate.Inf, 1)
	if opts.Interval > 0 {
		rl = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Client{endpoint: endpoint, hc: hc, rl: rl, retries: opts.Retries}, nil
}

var (
	errBadStatus = errors.New("sentiment: bad status")
	errBadBody   = errors.New("sentiment: malformed response")
)

type request struct {
	Text string `json:"text"`
}

type response struct {
	Sentiment *string  `json:"sentiment"`
	Polarity  *float64 `json:"polarity"`
}

// Classify returns the remote label and polarity for text, or the Error/0.0
// sentinel when the call or its response is unusable.
func (c *Client) Classify(ctx context.Context, text string) domain.Classification {
	if strings.TrimSpace(text) == "" {
		observability.ObserveClassification(domain.SentimentError)
		return domain.ErrorClassification
	}
	out, err := c.classify(ctx, text)
	if err != nil {
		log.Warn().Err(err).Int("len", len(text)).Msg("classification failed; using Error sentinel")
		observability.ObserveClassification(domain.SentimentError)
		return domain.ErrorClassification
	}
	observability.ObserveClassification(out.Sentiment)
	return out
}

func (c *Client) classify(ctx context.Context, text string) (domain.Classification, error) {
	// client-side pacing
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Classification{}, err
	}
	body, err := json.Marshal(request{Text: text})
	if err != nil {
		return domain.Classification{}, err
	}

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return domain.Classification{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("sentiment", "predict", 0, time.Since(start))
			if ctx.Err() != nil {
				return domain.Classification{}, ctx.Err()
			}
			lastErr = err
			if i < c.retries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return domain.Classification{}, lastErr
		}
		observability.ObserveExternal("sentiment", "predict", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			out, err := decode(resp.Body)
			resp.Body.Close()
			return out, err

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
			if i < c.retries && sleepCtx(ctx, wait) {
				continue
			}
			return domain.Classification{}, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return domain.Classification{}, fmt.Errorf("%w: %d: %s", errBadStatus, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return domain.Classification{}, lastErr
}

func decode(r io.Reader) (domain.Classification, error) {
	var body response
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&body); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if body.Sentiment == nil || body.Polarity == nil {
		return domain.Classification{}, fmt.Errorf("%w: missing sentiment or polarity", errBadBody)
	}
	s, ok := domain.ParseSentiment(*body.Sentiment)
	if !ok || s == domain.SentimentError {
		return domain.Classification{}, fmt.Errorf("%w: unknown label %q", errBadBody, *body.Sentiment)
	}
	p := *body.Polarity
	if math.IsNaN(p) || p < -1 || p > 1 {
		return domain.Classification{}, fmt.Errorf("%w: polarity %v out of range", errBadBody, p)
	}
	return domain.Classification{Sentiment: s, Polarity: p}, nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 200ms doubling per attempt plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

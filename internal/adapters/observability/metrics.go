package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
)

const namespace = "reviews"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help, Buckets: prometheus.DefBuckets,
	}, labels)
}

var (
	HTTPRequests = counter("http_requests_total", "Dashboard API requests.", "route", "method", "status")
	HTTPLatency  = histogram("http_request_duration_seconds", "Dashboard API latency.", "route", "method")

	// service: sentiment|gemini|scraper
	ExternalRequests = counter("external_requests_total", "Outbound calls.", "service", "endpoint", "status")
	ExternalLatency  = histogram("external_request_duration_seconds", "Outbound call latency.", "service", "endpoint")

	// event: hit|miss|set|del
	CacheEvents = counter("cache_events_total", "Cache events.", "cache", "event")

	Classifications = counter("classifications_total", "Classification outcomes by label.", "sentiment")
	// outcome: accepted|skipped
	IngestedRecords = counter("ingested_records_total", "Ingested records by source and outcome.", "source", "outcome")
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		CacheEvents, Classifications, IngestedRecords)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
// Batch commands use it; the dashboard API mounts the handler on its router.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(InitRegistry()))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call; status 0 means no response.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveClassification(s domain.Sentiment) {
	Classifications.WithLabelValues(string(s)).Inc()
}

func ObserveIngest(kind domain.SourceKind, accepted, skipped int) {
	IngestedRecords.WithLabelValues(string(kind), "accepted").Add(float64(accepted))
	IngestedRecords.WithLabelValues(string(kind), "skipped").Add(float64(skipped))
}

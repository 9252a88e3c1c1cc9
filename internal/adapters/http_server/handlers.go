package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
)

const emptyStateDetail = "No review data available yet. Run `reviewctl ingest` and `reviewctl enrich` to produce it."

// Handlers serves the dashboard. P is optional; without it the pipeline
// endpoints are not mounted.
type Handlers struct {
	D *app.DashboardService
	P *app.PipelineRunner
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type summaryView struct {
	Mode      app.DashboardMode `json:"mode"`
	Dataset   domain.Dataset    `json:"dataset"`
	UpdatedAt time.Time         `json:"updated_at"`
	domain.Summary
}

type reviewView struct {
	Restaurant *string           `json:"restaurant"`
	Review     string            `json:"review"`
	Sentiment  domain.Sentiment  `json:"sentiment,omitempty"`
	Polarity   *float64          `json:"polarity,omitempty"`
	Baseline   domain.Sentiment  `json:"baseline,omitempty"`
	Source     domain.SourceKind `json:"source,omitempty"`
}

// Total counts all matches; Count only the returned items.
type reviewsPage struct {
	Items []reviewView `json:"items"`
	Count int          `json:"count"`
	Total int          `json:"total"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.timeout))
		r.Get("/v1/summary", h.getSummary)
		r.Get("/v1/reviews", h.listReviews)
		r.Get("/v1/restaurants", h.listRestaurants)
	})
	if h.P != nil {
		s.mux.Post("/v1/pipeline/generate", h.runGenerate)
		s.mux.Post("/v1/pipeline/enrich", h.runEnrich)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeLoadError maps a dashboard load error to the empty state or a 500.
func writeLoadError(w http.ResponseWriter, err error) {
	if domain.IsNoData(err) {
		writeProblem(w, http.StatusNotFound, "No Data", emptyStateDetail)
		return
	}
	log.Error().Err(err).Msg("dashboard load failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not load review data")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.D.Snapshot(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	w.Header().Set("Last-Modified", snap.UpdatedAt.UTC().Format(http.TimeFormat))
	writeJSON(w, r, summaryView{
		Mode:      h.D.Mode(),
		Dataset:   snap.Dataset,
		UpdatedAt: snap.UpdatedAt.UTC(),
		Summary:   snap.Summary,
	})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q := app.ReviewQuery{Restaurant: r.URL.Query().Get("restaurant"), Limit: 50}

	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		q.Limit = l
	}
	if ss := r.URL.Query().Get("sentiment"); ss != "" {
		s, ok := domain.ParseSentiment(ss)
		if !ok {
			writeProblem(w, http.StatusBadRequest, "Invalid sentiment", "sentiment must be one of Positive, Negative, Neutral, Error")
			return
		}
		q.Sentiment = s
	}

	rs, total, err := h.D.Reviews(r.Context(), q)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	out := reviewsPage{Items: make([]reviewView, 0, len(rs)), Count: len(rs), Total: total}
	for _, rv := range rs {
		out.Items = append(out.Items, reviewView{
			Restaurant: rv.Restaurant,
			Review:     rv.Text,
			Sentiment:  rv.Sentiment,
			Polarity:   rv.Polarity,
			Baseline:   rv.Baseline,
			Source:     rv.Source,
		})
	}
	writeJSON(w, r, out)
}

func (h *Handlers) listRestaurants(w http.ResponseWriter, r *http.Request) {
	names, err := h.D.Restaurants(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, r, map[string][]string{"restaurants": names})
}

/********** pipeline runs **********/

type generateResult struct {
	Source   domain.SourceKind `json:"source"`
	Accepted int               `json:"accepted"`
	Skipped  int               `json:"skipped"`
}

type enrichResult struct {
	RunID       string `json:"run_id"`
	Total       int    `json:"total"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	Unprocessed int    `json:"unprocessed"`
	DurationMS  int64  `json:"duration_ms"`
}

// writeRunError maps a pipeline run error to a problem response.
func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrPipelineBusy):
		writeProblem(w, http.StatusConflict, "Run In Progress", "another pipeline run is writing the data files; retry when it finishes")
	case errors.Is(err, app.ErrCollectorNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Not Configured", "this collector is not configured on the server")
	case domain.IsNoData(err):
		writeProblem(w, http.StatusNotFound, "No Data", "nothing to process: generate reviews first")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, "Run Interrupted", "the run was interrupted; partial results were kept")
	default:
		log.Error().Err(err).Msg("pipeline run failed")
		writeProblem(w, http.StatusInternalServerError, "Run Failed", err.Error())
	}
}

func writeRunResult(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write run result failed")
	}
}

func (h *Handlers) runGenerate(w http.ResponseWriter, r *http.Request) {
	kind := domain.SourceLLMBatch
	if src := r.URL.Query().Get("source"); src != "" {
		k, ok := domain.ParseSourceKind(src)
		if !ok || k == domain.SourceCorpus {
			writeProblem(w, http.StatusBadRequest, "Invalid source", "source must be llm or scrape")
			return
		}
		kind = k
	}
	rep, err := h.P.Generate(r.Context(), kind)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeRunResult(w, generateResult{Source: kind, Accepted: rep.Accepted, Skipped: rep.Skipped})
}

func (h *Handlers) runEnrich(w http.ResponseWriter, r *http.Request) {
	rep, err := h.P.Enrich(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeRunResult(w, enrichResult{
		RunID:       rep.RunID,
		Total:       rep.Total,
		Succeeded:   rep.Succeeded,
		Failed:      rep.Failed,
		Skipped:     rep.Skipped,
		Unprocessed: rep.Unprocessed,
		DurationMS:  rep.Duration.Milliseconds(),
	})
}

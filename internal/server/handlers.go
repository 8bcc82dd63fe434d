package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/internal/insight"
	"tidings-hq/tidings/pkg/fallback"
)

// maxRequestBody caps article and keyword payloads at 1 MiB.
const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// articlePayload is the wire form of one posted article.
type articlePayload struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
	Topics      []string  `json:"topics"`
}

func (p articlePayload) toArticle() feed.Article {
	return feed.Article{
		ID:          p.ID,
		Headline:    p.Headline,
		Summary:     p.Summary,
		Publisher:   p.Publisher,
		PublishedAt: p.PublishedAt,
		Topics:      p.Topics,
	}
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := s.insights.Brief(r.Context())
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func (s *Server) handleReplaceArticles(w http.ResponseWriter, r *http.Request) {
	var payload []articlePayload
	if !decodeBody(w, r, &payload) {
		return
	}

	articles := make([]feed.Article, 0, len(payload))
	for _, p := range payload {
		if p.Headline == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "article headline is required"})
			return
		}
		articles = append(articles, p.toArticle())
	}

	s.source.Replace(articles)
	slog.Info("article set replaced", "count", len(articles))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var payload []articlePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if len(payload) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at least one article is required"})
		return
	}

	articles := make([]feed.Article, 0, len(payload))
	for _, p := range payload {
		articles = append(articles, p.toArticle())
	}

	results, err := s.insights.Keywords(r.Context(), articles)
	if err != nil {
		// Partial results are still useful; report per-article failures as
		// empty keyword lists and log the detail.
		slog.Warn("keyword extraction partially failed", "error", err)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeGenerationError maps service errors to HTTP statuses.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	var allFailed *fallback.AllProvidersFailedError

	switch {
	case errors.Is(err, insight.ErrNoArticles):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no articles to summarize"})
	case errors.Is(err, fallback.ErrNoAttempts):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no providers configured"})
	case errors.As(err, &allFailed):
		// Per-provider detail (raw upstream errors included) stays on the
		// operator surface; clients get a generic failure.
		slog.Error("all providers failed", "attempts", len(allFailed.Attempts), "error", allFailed)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "all providers failed"})
	default:
		slog.Error("brief generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

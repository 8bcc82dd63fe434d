package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/internal/insight"
	"tidings-hq/tidings/pkg/config"
	"tidings-hq/tidings/pkg/providerfactory"
)

func chatCompletion(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]interface{}{"content": content},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

// newTestServer wires a server whose single provider is the given handler.
func newTestServer(t *testing.T, provider http.HandlerFunc) (*Server, *feed.MemorySource) {
	t.Helper()

	upstream := httptest.NewServer(provider)
	t.Cleanup(upstream.Close)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "test-key", BaseURL: upstream.URL, Timeout: 5 * time.Second},
	}

	factory, err := providerfactory.New(cfg)
	if err != nil {
		t.Fatalf("providerfactory.New() error = %v", err)
	}

	source := feed.NewMemorySource()
	insights := insight.NewService(factory, source, nil, nil, insight.Options{})

	return New(cfg.Server, insights, source, nil, ""), source
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q, want status ok", rec.Body.String())
	}
}

func TestReplaceArticlesAndBrief(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletion(
			`{"summary": "- Markets were calm.\n- Volumes stayed light.", "keywords": ["markets"]}`)))
	})
	handler := srv.routes()

	body := `[{"id": "a1", "headline": "Calm day on the markets", "summary": "Nothing moved much."}]`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/articles", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("POST /v1/articles status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/brief", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/brief status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var brief insight.Brief
	if err := json.NewDecoder(rec.Body).Decode(&brief); err != nil {
		t.Fatalf("failed to decode brief: %v", err)
	}
	if brief.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", brief.Provider)
	}
	if brief.ArticleCount != 1 {
		t.Errorf("ArticleCount = %d, want 1", brief.ArticleCount)
	}
}

func TestBriefWithoutArticles(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called without articles")
	})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/brief", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBriefAllProvidersDown(t *testing.T) {
	srv, source := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "down"}}`, http.StatusBadGateway)
	})
	source.Replace([]feed.Article{{ID: "a1", Headline: "Something happened"}})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/brief", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Error != "all providers failed" {
		t.Errorf("Error = %q, want generic failure message", resp.Error)
	}
	// Raw upstream error bodies must not leak to the client.
	if strings.Contains(resp.Error, "down") || strings.Contains(resp.Error, "openai") {
		t.Errorf("Error = %q, leaks provider detail", resp.Error)
	}
}

func TestReplaceArticlesRejectsMissingHeadline(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/articles",
		strings.NewReader(`[{"id": "a1"}]`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReplaceArticlesRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/articles",
		strings.NewReader(`not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletion(`{"summary": "One.", "keywords": ["kw"]}`)))
	})

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/keywords",
		strings.NewReader(`[{"id": "a1", "headline": "Something happened today"}]`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var results []insight.ArticleKeywords
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 1 || results[0].ArticleID != "a1" {
		t.Errorf("results = %+v", results)
	}
}

package openai

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tidings-hq/tidings/pkg/providers"
)

// mockChat queues chat-completion responses and records the wire requests.
type mockChat struct {
	mu        sync.Mutex
	responses []string
	requests  []chatRequest
	status    int
}

func (m *mockChat) handler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.requests = append(m.requests, req)

	if m.status != 0 {
		http.Error(w, `{"error": {"message": "upstream failure"}}`, m.status)
		return
	}

	body := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func chatBody(content, finishReason string) string {
	resp := map[string]interface{}{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"message":       map[string]interface{}{"content": content},
				"finish_reason": finishReason,
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestProvider(t *testing.T, mock *mockChat, budget BudgetPolicy) *Provider {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(mock.handler))
	t.Cleanup(srv.Close)

	p, err := NewProviderWithBudget(providers.ProviderConfig{
		Name:    "openai",
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, budget)
	if err != nil {
		t.Fatalf("NewProviderWithBudget() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestGenerateSuccess(t *testing.T) {
	mock := &mockChat{responses: []string{
		chatBody(`{"insight": "- Markets rallied on rate news.\n- Tech led the gains broadly.", "keywords": ["rates", "tech"]}`, "stop"),
	}}
	p := newTestProvider(t, mock, DefaultBudgetPolicy())

	res, err := p.Generate(t.Context(), &providers.GenerationRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.Primary != "- Markets rallied on rate news.\n- Tech led the gains broadly." {
		t.Errorf("Primary = %q", res.Primary)
	}
	if len(res.Keywords) != 2 {
		t.Errorf("Keywords = %v, want 2 entries", res.Keywords)
	}
	if len(mock.requests) != 1 {
		t.Fatalf("request count = %d, want 1", len(mock.requests))
	}

	wire := mock.requests[0]
	if wire.MaxTokens != providers.DefaultMaxOutputTokens {
		t.Errorf("max_tokens = %d, want default %d", wire.MaxTokens, providers.DefaultMaxOutputTokens)
	}
	if wire.Temperature != providers.DefaultTemperature {
		t.Errorf("temperature = %g, want default %g", wire.Temperature, providers.DefaultTemperature)
	}
	if wire.ResponseFormat == nil || wire.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object mode", wire.ResponseFormat)
	}
	if len(wire.Messages) != 2 || wire.Messages[0].Role != "system" || wire.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", wire.Messages)
	}
}

func TestGenerateSchemaMode(t *testing.T) {
	mock := &mockChat{responses: []string{
		chatBody(`{"summary": "- Done.", "keywords": []}`, "stop"),
	}}
	p := newTestProvider(t, mock, DefaultBudgetPolicy())

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "summary",
		Schema: &providers.Schema{
			Properties: map[string]providers.SchemaProperty{
				"summary":  {Type: "string"},
				"keywords": {Type: "array", Items: &providers.SchemaProperty{Type: "string"}},
			},
			Required: []string{"summary"},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	wire := mock.requests[0]
	if wire.ResponseFormat == nil || wire.ResponseFormat.Type != "json_schema" {
		t.Fatalf("response_format = %+v, want json_schema mode", wire.ResponseFormat)
	}
	if !wire.ResponseFormat.JSONSchema.Strict {
		t.Errorf("json_schema.strict = false, want true")
	}
}

func TestGenerateBudgetRetryOnTruncation(t *testing.T) {
	// First call: truncated mid-string, recovered text too short to accept.
	// Second call: complete. The retry must raise max_tokens by one step.
	mock := &mockChat{responses: []string{
		chatBody(`{"insight": "Partial sent`, "length"),
		chatBody(`{"insight": "- The full answer arrived this time around.\n- It has two bullet lines.", "keywords": []}`, "stop"),
	}}
	p := newTestProvider(t, mock, BudgetPolicy{Step: 2000, Ceiling: 8000, MaxRetries: 2})

	res, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Primary == "Partial sent" {
		t.Error("Generate() accepted the incomplete first response")
	}

	if len(mock.requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(mock.requests))
	}
	if got := mock.requests[0].MaxTokens; got != 4000 {
		t.Errorf("first max_tokens = %d, want 4000", got)
	}
	if got := mock.requests[1].MaxTokens; got != 6000 {
		t.Errorf("retry max_tokens = %d, want 6000", got)
	}
}

func TestGenerateBudgetRetryExhaustionReturnsBestEffort(t *testing.T) {
	// Every response is truncated and short. After the retries run out the
	// last recovered result is still returned: best effort beats nothing.
	truncated := chatBody(`{"insight": "Partial sent`, "length")
	mock := &mockChat{responses: []string{truncated, truncated, truncated}}
	p := newTestProvider(t, mock, BudgetPolicy{Step: 2000, Ceiling: 8000, MaxRetries: 2})

	res, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Primary != "Partial sent" {
		t.Errorf("Primary = %q, want best-effort %q", res.Primary, "Partial sent")
	}
	if len(mock.requests) != 3 {
		t.Errorf("request count = %d, want 3 (initial + 2 retries)", len(mock.requests))
	}
}

func TestGenerateBudgetRetryRespectsCeiling(t *testing.T) {
	truncated := chatBody(`{"insight": "Partial sent`, "length")
	mock := &mockChat{responses: []string{truncated, truncated, truncated}}
	p := newTestProvider(t, mock, BudgetPolicy{Step: 5000, Ceiling: 6000, MaxRetries: 2})

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 4000, then capped at 6000; at the ceiling no further retry is issued.
	if len(mock.requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(mock.requests))
	}
	if got := mock.requests[1].MaxTokens; got != 6000 {
		t.Errorf("retry max_tokens = %d, want ceiling 6000", got)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	mock := &mockChat{responses: []string{chatBody("", "content_filter")}}
	p := newTestProvider(t, mock, DefaultBudgetPolicy())

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if !errors.Is(err, providers.ErrEmptyResponse) {
		t.Fatalf("Generate() error = %v, want empty response error", err)
	}

	var empty *providers.EmptyResponseError
	if !errors.As(err, &empty) {
		t.Fatalf("error type = %T", err)
	}
	if empty.BlockReason != "content_filter" {
		t.Errorf("BlockReason = %q, want %q", empty.BlockReason, "content_filter")
	}
	// No retry for empty outcomes.
	if len(mock.requests) != 1 {
		t.Errorf("request count = %d, want 1", len(mock.requests))
	}
}

func TestGenerateTransportError(t *testing.T) {
	mock := &mockChat{status: http.StatusTooManyRequests}
	p := newTestProvider(t, mock, DefaultBudgetPolicy())

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if !errors.Is(err, providers.ErrTransport) {
		t.Fatalf("Generate() error = %v, want transport error", err)
	}

	var transport *providers.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error type = %T", err)
	}
	if transport.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want %d", transport.StatusCode, http.StatusTooManyRequests)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(providers.ProviderConfig{
		Name:    "openai",
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })

	_, err = p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})

	var transport *providers.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Generate() error = %v, want transport error", err)
	}
	if !transport.Timeout {
		t.Error("Timeout = false, want the timeout variant")
	}
}

func TestGenerateDoesNotMutateRequest(t *testing.T) {
	mock := &mockChat{responses: []string{
		chatBody(`{"insight": "- Fine.\n- Done."}`, "stop"),
	}}
	p := newTestProvider(t, mock, DefaultBudgetPolicy())

	req := &providers.GenerationRequest{UserPrompt: "user", PrimaryField: "insight"}
	if _, err := p.Generate(t.Context(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if req.Temperature != 0 || req.MaxOutputTokens != 0 {
		t.Errorf("caller request was mutated: %+v", req)
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "openai"})
	if err == nil {
		t.Fatal("NewProvider() error = nil, want config error for missing key")
	}
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *providers.ConfigError", err)
	}
}

package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tidings-hq/tidings/pkg/providers"
)

type capturedRequest struct {
	wire    messagesRequest
	headers http.Header
	path    string
}

func newTestProvider(t *testing.T, responseBody string, status int, captured *capturedRequest) *Provider {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.headers = r.Header.Clone()
			captured.path = r.URL.Path
			json.NewDecoder(r.Body).Decode(&captured.wire)
		}
		if status != 0 {
			http.Error(w, `{"type": "error"}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(providers.ProviderConfig{
		Name:    "anthropic",
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func messagesBody(text, stopReason string) string {
	resp := map[string]interface{}{
		"id":          "msg-test",
		"model":       DefaultModel,
		"stop_reason": stopReason,
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGenerateSuccess(t *testing.T) {
	var captured capturedRequest
	body := messagesBody(`{"insight": "- Rates held.\n- Stocks rose.", "keywords": ["rates"]}`, "end_turn")
	p := newTestProvider(t, body, 0, &captured)

	res, err := p.Generate(t.Context(), &providers.GenerationRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.Primary != "- Rates held.\n- Stocks rose." {
		t.Errorf("Primary = %q", res.Primary)
	}
	if captured.path != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", captured.path)
	}
	if got := captured.headers.Get("x-api-key"); got != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", got)
	}
	if got := captured.headers.Get("anthropic-version"); got != APIVersion {
		t.Errorf("anthropic-version = %q, want %q", got, APIVersion)
	}

	// System prompt travels as a top-level field, not a message.
	if captured.wire.System != "system" {
		t.Errorf("system = %q, want %q", captured.wire.System, "system")
	}
	if len(captured.wire.Messages) != 1 || captured.wire.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want a single user message", captured.wire.Messages)
	}
	if captured.wire.MaxTokens != providers.DefaultMaxOutputTokens {
		t.Errorf("max_tokens = %d, want %d", captured.wire.MaxTokens, providers.DefaultMaxOutputTokens)
	}
}

func TestGenerateTruncatedRepair(t *testing.T) {
	body := messagesBody(`{"insight": "Partial sent`, "max_tokens")
	p := newTestProvider(t, body, 0, nil)

	res, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Primary != "Partial sent" {
		t.Errorf("Primary = %q, want repaired partial text", res.Primary)
	}
	if res.Stage != providers.StageTruncationRepair {
		t.Errorf("Stage = %q, want %q", res.Stage, providers.StageTruncationRepair)
	}
	if len(res.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty after truncation repair", res.Keywords)
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	p := newTestProvider(t, `{"id": "msg-test", "content": [], "stop_reason": "end_turn"}`, 0, nil)

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})
	if !errors.Is(err, providers.ErrEmptyResponse) {
		t.Fatalf("Generate() error = %v, want empty response error", err)
	}
}

func TestGenerateTransportError(t *testing.T) {
	p := newTestProvider(t, "", http.StatusServiceUnavailable, nil)

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})

	var transport *providers.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Generate() error = %v, want transport error", err)
	}
	if transport.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", transport.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestGenerateMalformedCarriesProvider(t *testing.T) {
	p := newTestProvider(t, messagesBody("no structure at all in this text", "end_turn"), 0, nil)

	_, err := p.Generate(t.Context(), &providers.GenerationRequest{
		UserPrompt:   "user",
		PrimaryField: "insight",
	})

	var malformed *providers.MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("Generate() error = %v, want malformed output error", err)
	}
	if malformed.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", malformed.Provider)
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "anthropic"})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewProvider() error = %v, want *providers.ConfigError", err)
	}
}

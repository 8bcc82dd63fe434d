package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"tidings-hq/tidings/pkg/providers"
)

// Provider is the Anthropic adapter for the messages API.
type Provider struct {
	*providers.HTTPClient
	model string
}

const (
	// APIVersion is the messages API version header value.
	APIVersion = "2023-06-01"

	// DefaultModel is used when the configuration does not name one.
	DefaultModel = "claude-haiku-4-5"
)

// NewProvider creates an Anthropic adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "anthropic"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	p := &Provider{
		HTTPClient: providers.NewHTTPClient(config),
		model:      config.Model,
	}

	slog.Info("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return p, nil
}

// Generate sends one generation request, classifies the stop reason, and runs
// the recovery pipeline on the raw text.
func (p *Provider) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	r := *req
	r.ApplyDefaults()

	url := fmt.Sprintf("%s/v1/messages", p.Config().BaseURL)
	headers := map[string]string{
		"x-api-key":         p.Config().APIKey,
		"anthropic-version": APIVersion,
	}

	body, err := p.PostJSON(ctx, url, transformRequest(&r, p.model), headers)
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &providers.MalformedOutputError{
			Provider: p.Name(),
			Snippet:  providers.Snippet(string(body)),
			Cause:    err,
		}
	}

	raw, term := classify(&resp)

	slog.Info("provider call completed",
		"tag", r.DiagnosticTag,
		"provider", p.Name(),
		"termination", term,
		"response_length", len(raw),
	)

	if term == providers.TerminationEmpty {
		return nil, &providers.EmptyResponseError{Provider: p.Name()}
	}

	result, err := providers.Recover(raw, r.PrimaryField, term == providers.TerminationTruncated)
	if err != nil {
		var malformed *providers.MalformedOutputError
		if errors.As(err, &malformed) {
			malformed.Provider = p.Name()
			return nil, malformed
		}
		return nil, err
	}
	return result, nil
}

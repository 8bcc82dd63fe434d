package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"tidings-hq/tidings/pkg/providers"
)

// Provider is the Gemini adapter for the generateContent API.
type Provider struct {
	*providers.HTTPClient
	model string
}

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "gemini-2.0-flash"

// NewProvider creates a Gemini adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "gemini"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Gemini",
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	p := &Provider{
		HTTPClient: providers.NewHTTPClient(config),
		model:      config.Model,
	}

	slog.Info("Gemini provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return p, nil
}

// Generate sends one generation request, classifies the finish reason, and
// runs the recovery pipeline on the raw text.
func (p *Provider) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	r := *req
	r.ApplyDefaults()

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.Config().BaseURL, url.PathEscape(p.model), url.QueryEscape(p.Config().APIKey))

	body, err := p.PostJSON(ctx, endpoint, transformRequest(&r), nil)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &providers.MalformedOutputError{
			Provider: p.Name(),
			Snippet:  providers.Snippet(string(body)),
			Cause:    err,
		}
	}

	raw, term, blockReason := classify(&resp)

	slog.Info("provider call completed",
		"tag", r.DiagnosticTag,
		"provider", p.Name(),
		"termination", term,
		"response_length", len(raw),
	)

	if term == providers.TerminationEmpty {
		return nil, &providers.EmptyResponseError{
			Provider:    p.Name(),
			BlockReason: blockReason,
		}
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

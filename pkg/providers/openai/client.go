package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"tidings-hq/tidings/pkg/providers"
)

// Provider is the OpenAI adapter for the chat completions API. It is the one
// adapter carrying the budget-increase retry: when the provider truncates the
// output and the recovered result still looks cut off, the call is re-issued
// with a larger token ceiling.
type Provider struct {
	*providers.HTTPClient
	model  string
	budget BudgetPolicy
}

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "gpt-4o-mini"

// BudgetPolicy bounds the truncation-driven retry: each retry raises the
// output-token ceiling by Step, never past Ceiling, at most MaxRetries times.
type BudgetPolicy struct {
	Step       int
	Ceiling    int
	MaxRetries int
}

// DefaultBudgetPolicy returns the empirical defaults. They are configuration,
// not contract.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{Step: 2000, Ceiling: 8000, MaxRetries: 2}
}

// NewProvider creates an OpenAI adapter with the default budget policy.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	return NewProviderWithBudget(config, DefaultBudgetPolicy())
}

// NewProviderWithBudget creates an OpenAI adapter with an explicit budget policy.
func NewProviderWithBudget(config providers.ProviderConfig, budget BudgetPolicy) (*Provider, error) {
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	if budget.Step <= 0 {
		budget.Step = DefaultBudgetPolicy().Step
	}
	if budget.Ceiling <= 0 {
		budget.Ceiling = DefaultBudgetPolicy().Ceiling
	}
	if budget.MaxRetries < 0 {
		budget.MaxRetries = 0
	}

	p := &Provider{
		HTTPClient: providers.NewHTTPClient(config),
		model:      config.Model,
		budget:     budget,
	}

	slog.Info("OpenAI provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return p, nil
}

// Generate sends one generation request, classifies the outcome, and runs the
// recovery pipeline. Truncated-and-incomplete results trigger the budget
// retry; all other failures are terminal for this call.
func (p *Provider) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	r := *req // the caller's request stays immutable
	r.ApplyDefaults()

	budget := r.MaxOutputTokens
	var lastResult *providers.GenerationResult
	var lastErr error

	for attempt := 0; attempt <= p.budget.MaxRetries; attempt++ {
		result, truncated, err := p.generateOnce(ctx, &r, budget)
		if err != nil {
			lastErr = err
			lastResult = nil
			// Only truncation-driven recovery failures warrant a bigger
			// budget; transport and empty outcomes will not improve.
			if !truncated || ctx.Err() != nil {
				return nil, err
			}
		} else {
			lastErr = nil
			lastResult = result
			if !truncated || !providers.LooksIncomplete(result) {
				return result, nil
			}
		}

		if budget >= p.budget.Ceiling {
			break
		}
		budget = min(budget+p.budget.Step, p.budget.Ceiling)

		slog.Info("truncated output looked incomplete, retrying with larger budget",
			"tag", r.DiagnosticTag,
			"provider", p.Name(),
			"attempt", attempt+1,
			"max_output_tokens", budget,
		)
	}

	if lastErr != nil {
		return nil, lastErr
	}
	// Retries exhausted with a recovered-but-short result: best effort wins.
	return lastResult, nil
}

// generateOnce performs a single wire call. truncated reports whether the
// provider cut the output, regardless of whether recovery then succeeded.
func (p *Provider) generateOnce(ctx context.Context, req *providers.GenerationRequest, budget int) (*providers.GenerationResult, bool, error) {
	url := fmt.Sprintf("%s/chat/completions", p.Config().BaseURL)
	headers := map[string]string{
		"Authorization": "Bearer " + p.Config().APIKey,
	}

	body, err := p.PostJSON(ctx, url, transformRequest(req, p.model, budget), headers)
	if err != nil {
		return nil, false, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, &providers.MalformedOutputError{
			Provider: p.Name(),
			Snippet:  providers.Snippet(string(body)),
			Cause:    err,
		}
	}

	raw, term, blockReason := classify(&resp)

	slog.Info("provider call completed",
		"tag", req.DiagnosticTag,
		"provider", p.Name(),
		"termination", term,
		"response_length", len(raw),
	)

	if term == providers.TerminationEmpty {
		return nil, false, &providers.EmptyResponseError{
			Provider:    p.Name(),
			BlockReason: blockReason,
		}
	}

	truncated := term == providers.TerminationTruncated
	result, err := providers.Recover(raw, req.PrimaryField, truncated)
	if err != nil {
		var malformed *providers.MalformedOutputError
		if errors.As(err, &malformed) {
			malformed.Provider = p.Name()
			return nil, truncated, malformed
		}
		return nil, truncated, err
	}
	return result, truncated, nil
}

package openai

import (
	"tidings-hq/tidings/pkg/providers"
)

// OpenAI chat completions request/response types.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat selects OpenAI's JSON mode. With a schema hint we request
// strict schema-constrained output; without one, plain json_object mode.
type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// transformRequest builds the wire request from the provider-agnostic one.
// budget overrides the request's token ceiling so the budget-increase retry
// can raise it without mutating the caller's request.
func transformRequest(req *providers.GenerationRequest, model string, budget int) *chatRequest {
	wire := &chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   budget,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}

	if req.Schema != nil {
		wire.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   "generation_result",
				Strict: true,
				Schema: schemaToJSONSchema(req.Schema),
			},
		}
	} else {
		wire.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	return wire
}

// schemaToJSONSchema converts the opaque structural hint to a JSON Schema
// object in the shape OpenAI's strict mode expects.
func schemaToJSONSchema(s *providers.Schema) map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Properties))
	for name, prop := range s.Properties {
		properties[name] = propertyToJSONSchema(prop)
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             s.Required,
		"additionalProperties": false,
	}
}

func propertyToJSONSchema(p providers.SchemaProperty) map[string]interface{} {
	out := map[string]interface{}{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Items != nil {
		out["items"] = propertyToJSONSchema(*p.Items)
	}
	return out
}

// classify normalizes OpenAI's finish_reason vocabulary to TerminationReason
// and extracts the raw text plus any block reason.
func classify(resp *chatResponse) (raw string, term providers.TerminationReason, blockReason string) {
	if len(resp.Choices) == 0 {
		return "", providers.TerminationEmpty, ""
	}

	choice := resp.Choices[0]
	raw = choice.Message.Content

	if raw == "" {
		reason := choice.Message.Refusal
		if reason == "" && choice.FinishReason == "content_filter" {
			reason = "content_filter"
		}
		return "", providers.TerminationEmpty, reason
	}

	switch choice.FinishReason {
	case "length":
		return raw, providers.TerminationTruncated, ""
	default:
		return raw, providers.TerminationNormal, ""
	}
}

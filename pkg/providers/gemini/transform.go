package gemini

import (
	"strings"

	"tidings-hq/tidings/pkg/providers"
)

// Gemini generateContent request/response types.

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// transformRequest builds the wire request. Gemini supports schema-constrained
// JSON output natively, so the structural hint is forwarded when present.
func transformRequest(req *providers.GenerationRequest) *generateRequest {
	wire := &generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: req.UserPrompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  req.MaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	if req.SystemPrompt != "" {
		wire.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	if req.Schema != nil {
		wire.GenerationConfig.ResponseSchema = schemaToResponseSchema(req.Schema)
	}

	return wire
}

// schemaToResponseSchema converts the structural hint to Gemini's uppercase
// OpenAPI-style schema vocabulary.
func schemaToResponseSchema(s *providers.Schema) map[string]any {
	properties := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		properties[name] = propertyToResponseSchema(prop)
	}
	return map[string]any{
		"type":       "OBJECT",
		"properties": properties,
		"required":   s.Required,
	}
}

func propertyToResponseSchema(p providers.SchemaProperty) map[string]any {
	out := map[string]any{"type": strings.ToUpper(p.Type)}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Items != nil {
		out["items"] = propertyToResponseSchema(*p.Items)
	}
	return out
}

// classify normalizes Gemini's finishReason vocabulary. Safety blocks and
// prompt feedback blocks surface as empty with the provider's reason attached.
func classify(resp *generateResponse) (raw string, term providers.TerminationReason, blockReason string) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			blockReason = resp.PromptFeedback.BlockReason
		}
		return "", providers.TerminationEmpty, blockReason
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	raw = b.String()

	if raw == "" {
		reason := candidate.FinishReason
		if reason == "STOP" {
			reason = ""
		}
		return "", providers.TerminationEmpty, reason
	}

	switch candidate.FinishReason {
	case "MAX_TOKENS":
		return raw, providers.TerminationTruncated, ""
	case "SAFETY", "RECITATION":
		// Content present but flagged; treat what we got as complete and let
		// recovery decide if it is usable.
		return raw, providers.TerminationNormal, ""
	default:
		return raw, providers.TerminationNormal, ""
	}
}

package anthropic

import (
	"tidings-hq/tidings/pkg/providers"
)

// Anthropic messages API request/response types.

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// transformRequest builds the wire request. Anthropic takes the system prompt
// as a dedicated field and has no JSON mode, so the schema hint is not
// forwarded; the recovery pipeline absorbs the looser output.
func transformRequest(req *providers.GenerationRequest, model string) *messagesRequest {
	return &messagesRequest{
		Model:       model,
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		Messages: []message{
			{Role: "user", Content: req.UserPrompt},
		},
	}
}

// classify normalizes Anthropic's stop_reason vocabulary and concatenates the
// text content blocks.
func classify(resp *messagesResponse) (raw string, term providers.TerminationReason) {
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}
	if raw == "" {
		return "", providers.TerminationEmpty
	}

	switch resp.StopReason {
	case "max_tokens":
		return raw, providers.TerminationTruncated
	default:
		// end_turn and stop_sequence are both natural completion.
		return raw, providers.TerminationNormal
	}
}

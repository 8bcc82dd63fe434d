package insight

import (
	"fmt"
	"strings"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/pkg/providers"
)

const briefSystemPrompt = `You are a news editor. Given a list of news headlines and summaries, produce a daily brief.

Rules for the brief:
- 3 to 5 bullet points
- Each bullet covers a distinct key event or theme
- Include names, numbers, and dates where relevant
- One sentence per bullet, neutral tone

Also produce up to 5 keywords capturing the main topics, most important first.

Output as JSON only, no other text:
{
  "summary": "- bullet 1\n- bullet 2\n- bullet 3",
  "keywords": ["topic 1", "topic 2"]
}`

const keywordSystemPrompt = `You are a news tagger. Given one news headline and summary, extract up to 5 keywords capturing its main topics, most important first. Keep each keyword short (1-3 words).

Output as JSON only, no other text:
{
  "summary": "one-sentence restatement of the item",
  "keywords": ["keyword 1", "keyword 2"]
}`

// briefSchema constrains providers with schema-aware output modes to the
// document shape the recovery pipeline expects.
var briefSchema = &providers.Schema{
	Properties: map[string]providers.SchemaProperty{
		"summary": {Type: "string", Description: "bullet-point brief"},
		"keywords": {
			Type:  "array",
			Items: &providers.SchemaProperty{Type: "string"},
		},
	},
	Required: []string{"summary", "keywords"},
}

// briefRequest builds the generation request for a daily brief over the given
// articles.
func briefRequest(articles []feed.Article, tag string) *providers.GenerationRequest {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s", i+1, a.Headline)
		if a.Publisher != "" {
			fmt.Fprintf(&b, " (%s)", a.Publisher)
		}
		b.WriteString("\n")
		if a.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", a.Summary)
		}
	}

	return &providers.GenerationRequest{
		SystemPrompt:  briefSystemPrompt,
		UserPrompt:    b.String(),
		PrimaryField:  "summary",
		DiagnosticTag: tag,
		Schema:        briefSchema,
	}
}

// keywordRequest builds the generation request for keyword extraction over a
// single article.
func keywordRequest(a feed.Article, tag string) *providers.GenerationRequest {
	var b strings.Builder
	b.WriteString(a.Headline)
	if a.Summary != "" {
		b.WriteString("\n")
		b.WriteString(a.Summary)
	}

	return &providers.GenerationRequest{
		SystemPrompt:  keywordSystemPrompt,
		UserPrompt:    b.String(),
		PrimaryField:  "summary",
		DiagnosticTag: tag,
		Schema:        briefSchema,
	}
}

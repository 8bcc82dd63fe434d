// Tidings is a news-insight service that generates daily briefs and keywords
// from ingested articles using multiple LLM providers.
//
// It sequences providers in a fixed fallback order (OpenAI, Anthropic,
// Gemini), repairs malformed model output, and serves results over HTTP:
//
//	# Start server with default configuration
//	tidings run
//
//	# Start with custom configuration file
//	tidings run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	tidings validate --config /path/to/config.yaml
//
//	# Show version information
//	tidings version
package main

func main() {
	Execute()
}

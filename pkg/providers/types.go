package providers

import "time"

// TerminationReason classifies how a single provider call ended. Each provider
// reports this condition in its own vocabulary (finish_reason, stop_reason,
// finishReason); adapters normalize to this enum.
type TerminationReason string

const (
	// TerminationNormal means the provider reported a complete response.
	TerminationNormal TerminationReason = "normal"

	// TerminationTruncated means generation was cut by the output-token limit.
	TerminationTruncated TerminationReason = "truncated"

	// TerminationEmpty means the provider returned zero content without an error.
	TerminationEmpty TerminationReason = "empty"

	// TerminationTransportError means the call failed at the network or HTTP level.
	TerminationTransportError TerminationReason = "transport_error"
)

// Default generation parameters applied by GenerationRequest.ApplyDefaults.
const (
	DefaultTemperature     = 0.4
	DefaultMaxOutputTokens = 4000
)

// GenerationRequest is a provider-agnostic request for one structured
// generation. It is constructed by the caller per API call and never reused.
type GenerationRequest struct {
	// SystemPrompt is the system instruction. Opaque to this package.
	SystemPrompt string

	// UserPrompt is the user message. Opaque to this package.
	UserPrompt string

	// Temperature controls sampling randomness (0.0 to 1.0).
	Temperature float64

	// MaxOutputTokens is the output-token ceiling forwarded to the provider.
	MaxOutputTokens int

	// PrimaryField names the single main text field the expected JSON result
	// must contain. The recovery pipeline anchors repair and extraction on it.
	PrimaryField string

	// DiagnosticTag is a free-form label prefixed to every log line emitted
	// for this request, for correlation across the fallback chain.
	DiagnosticTag string

	// Schema is an optional structural hint forwarded only to providers that
	// support schema-constrained output. Treated as opaque by the core.
	Schema *Schema
}

// ApplyDefaults fills zero-valued generation parameters with package defaults.
func (r *GenerationRequest) ApplyDefaults() {
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxOutputTokens == 0 {
		r.MaxOutputTokens = DefaultMaxOutputTokens
	}
}

// Schema is a structural hint for providers with schema-constrained output
// modes (OpenAI json_schema, Gemini responseSchema). It deliberately covers
// only the shapes the generation pipeline produces: flat objects of strings
// and string arrays.
type Schema struct {
	// Properties maps property names to their declared types.
	Properties map[string]SchemaProperty

	// Required lists property names the provider must emit.
	Required []string
}

// SchemaProperty declares the type of a single schema property.
type SchemaProperty struct {
	// Type is the JSON Schema type ("string", "array", ...).
	Type string

	// Items is the element type for array properties.
	Items *SchemaProperty

	// Description is an optional hint forwarded verbatim.
	Description string
}

// RecoveryStage identifies which stage of the recovery pipeline produced a
// result. Stages are tried in the order listed; the first success wins.
type RecoveryStage string

const (
	StageDirect           RecoveryStage = "direct"
	StageReescape         RecoveryStage = "reescape"
	StageTruncationRepair RecoveryStage = "truncation_repair"
	StageFieldExtract     RecoveryStage = "field_extract"
	StageBlockExtract     RecoveryStage = "block_extract"
)

// MaxKeywords caps the keyword list of every result; providers occasionally
// ignore the instruction to stop at five.
const MaxKeywords = 5

// GenerationResult is the typed outcome of a successful generation.
//
// Invariant: Primary is always non-empty after trimming. A result that would
// violate this is a failure, never a degraded success.
type GenerationResult struct {
	// PrimaryField is the field name Primary was extracted from.
	PrimaryField string

	// Primary is the main text content, bullet-normalized.
	Primary string

	// Keywords holds 0 to MaxKeywords entries in provider relevance order.
	Keywords []string

	// Stage records which recovery stage produced this result.
	Stage RecoveryStage
}

// ProviderConfig contains configuration for a single provider adapter.
// Adapters are constructed once at process start and reused across calls.
type ProviderConfig struct {
	// Name is the provider identifier (e.g. "openai", "anthropic", "gemini").
	Name string

	// BaseURL is the API endpoint base URL.
	BaseURL string

	// APIKey is the authentication credential. An adapter without a key is
	// unconfigured and must not be constructed.
	APIKey string

	// Model is the model identifier sent to the provider.
	Model string

	// Timeout bounds each HTTP call wall-clock.
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool.
	IdleConnTimeout time.Duration
}

// DefaultTimeout bounds a provider call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

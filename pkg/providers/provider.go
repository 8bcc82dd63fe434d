package providers

import "context"

// Adapter is the contract every provider adapter implements. An adapter
// executes a single HTTP call against one LLM service, classifies the outcome
// into a TerminationReason, and runs the recovery pipeline on the raw text.
//
// All state is call-local: adapters hold only their configuration and a pooled
// HTTP client, so independent calls may run concurrently without coordination.
//
// Implementations must respect context cancellation and return promptly when
// the context is cancelled; the fallback orchestrator treats cancellation as a
// final outcome rather than an attempt failure.
type Adapter interface {
	// Generate sends one generation request and returns the typed result.
	//
	// Failure modes, all terminal for this call:
	//   - *TransportError for network failures, non-2xx statuses, and timeouts
	//   - *EmptyResponseError when the provider returned no usable content
	//   - *MalformedOutputError when every recovery stage is exhausted
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)

	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Package providers contains the provider-agnostic generation contract and
// the response recovery pipeline.
//
// An Adapter executes one HTTP call against one LLM service, classifies how
// the call terminated (TerminationReason), and hands raw text to Recover,
// which tolerates truncated and malformed output through five ordered
// recovery stages before giving up.
//
// Concrete adapters live in the openai, anthropic, and gemini subpackages.
// They embed HTTPClient for pooling, timeouts, and transport error
// classification, and differ only in wire format and termination-code
// vocabulary.
//
// Error taxonomy:
//
//   - *TransportError: network/HTTP failure or timeout, terminal per call
//   - *EmptyResponseError: transport success but no usable content
//   - *MalformedOutputError: every recovery stage exhausted
//
// All three match their package sentinels via errors.Is.
package providers

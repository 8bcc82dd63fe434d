package providers

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks across the error taxonomy.
var (
	// ErrTransport matches any transport-level failure.
	ErrTransport = errors.New("provider transport failure")

	// ErrEmptyResponse matches responses with no usable content.
	ErrEmptyResponse = errors.New("provider returned empty response")

	// ErrMalformedOutput matches responses that exhausted every recovery stage.
	ErrMalformedOutput = errors.New("provider output unrecoverable")
)

// SnippetLength is how much raw provider output a MalformedOutputError carries
// for diagnosis.
const SnippetLength = 200

// TransportError represents a network, HTTP, or timeout failure. It is always
// terminal for the adapter call and is never handed to the recovery pipeline.
type TransportError struct {
	// Provider is the name of the provider that failed.
	Provider string

	// StatusCode is the HTTP status code (0 for network-level failures).
	StatusCode int

	// Message is the error detail, typically the provider's error body.
	Message string

	// Timeout marks the timeout variant so callers can distinguish a bounded
	// call that expired from other transport failures.
	Timeout bool

	// TimeoutAfter is the configured bound when Timeout is set.
	TimeoutAfter time.Duration

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.TimeoutAfter)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q transport error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q transport error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// EmptyResponseError represents a call that succeeded at the transport level
// but produced no content, including safety-blocked responses.
type EmptyResponseError struct {
	// Provider is the name of the provider.
	Provider string

	// BlockReason is the provider-supplied block or safety reason, if any.
	BlockReason string
}

// Error implements the error interface.
func (e *EmptyResponseError) Error() string {
	if e.BlockReason != "" {
		return fmt.Sprintf("provider %q returned empty response (blocked: %s)", e.Provider, e.BlockReason)
	}
	return fmt.Sprintf("provider %q returned empty response", e.Provider)
}

// Is implements error matching for errors.Is().
func (e *EmptyResponseError) Is(target error) bool {
	return target == ErrEmptyResponse
}

// MalformedOutputError is returned when every recovery stage has been
// exhausted. Snippet carries the head of the raw response for diagnosis.
type MalformedOutputError struct {
	// Provider is the name of the provider, when known.
	Provider string

	// Snippet is the first SnippetLength characters of the raw response.
	Snippet string

	// Cause is the error from the final recovery stage.
	Cause error
}

// Error implements the error interface.
func (e *MalformedOutputError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("provider %q output unrecoverable after all stages: %q", e.Provider, e.Snippet)
	}
	return fmt.Sprintf("output unrecoverable after all stages: %q", e.Snippet)
}

// Unwrap returns the underlying error for error chain support.
func (e *MalformedOutputError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// ConfigError represents an adapter configuration error.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration.
	Provider string

	// Field is the configuration field that is invalid.
	Field string

	// Message describes the configuration error.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// Snippet truncates raw provider output to SnippetLength for embedding in
// MalformedOutputError messages.
func Snippet(raw string) string {
	if len(raw) <= SnippetLength {
		return raw
	}
	return raw[:SnippetLength]
}

package fallback

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors that can be checked with errors.Is().
var (
	// ErrAllProvidersFailed is returned when every attempt in the chain failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrNoAttempts is returned when Run is given an empty chain.
	ErrNoAttempts = errors.New("no provider attempts configured")
)

// FailedAttempt is the evidentiary record of one failed provider attempt.
type FailedAttempt struct {
	// Provider is the name of the provider that failed.
	Provider string

	// Err is the failure from that provider's call.
	Err error
}

// AllProvidersFailedError aggregates every attempt's failure when the whole
// chain is exhausted. Attempts preserve the original order for diagnosis.
type AllProvidersFailedError struct {
	Attempts []FailedAttempt
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all %d providers failed: [%s]", len(e.Attempts), strings.Join(parts, "; "))
}

// Is implements error matching for errors.Is().
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap exposes the individual attempt errors so errors.Is / errors.As can
// match any of them through the aggregate.
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

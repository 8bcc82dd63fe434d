// Package fallback runs an ordered chain of provider attempts for one logical
// generation request, returning the first success or an aggregate failure
// carrying every attempt's error.
package fallback

import (
	"context"
	"log/slog"

	"tidings-hq/tidings/pkg/providers"
)

// Attempt pairs a provider name with the call that executes it. The caller
// builds the chain, typically from a factory's available adapters, so the
// orchestrator stays ignorant of provider construction.
type Attempt struct {
	// Provider is the name recorded in logs and failure evidence.
	Provider string

	// Call executes one generation against this provider.
	Call func(ctx context.Context) (*providers.GenerationResult, error)
}

// Outcome is a successful chain result tagged with the winning provider.
type Outcome struct {
	Result   *providers.GenerationResult
	Provider string
}

// Run tries each attempt strictly in order and short-circuits on the first
// success; later attempts are never issued. Sequential execution is
// deliberate: running paid providers in parallel for one logical request
// burns quota for answers that get thrown away.
//
// Caller cancellation is a final outcome: when the context is done, Run
// returns ctx.Err() without advancing to the next provider. Only when every
// attempt fails does Run return an *AllProvidersFailedError preserving the
// per-provider errors in attempt order.
//
// tag is the request's diagnostic label, prefixed to every log line.
func Run(ctx context.Context, tag string, attempts []Attempt) (*Outcome, error) {
	if len(attempts) == 0 {
		return nil, ErrNoAttempts
	}

	failures := make([]FailedAttempt, 0, len(attempts))

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Debug("attempting provider",
			"tag", tag,
			"provider", attempt.Provider,
			"attempt", i+1,
			"of", len(attempts),
		)

		result, err := attempt.Call(ctx)
		if err == nil {
			if i > 0 {
				slog.Info("fallback provider succeeded",
					"tag", tag,
					"provider", attempt.Provider,
					"failed_attempts", len(failures),
				)
			}
			return &Outcome{Result: result, Provider: attempt.Provider}, nil
		}

		// Cancellation mid-call is not an attempt failure; stop here.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		failures = append(failures, FailedAttempt{
			Provider: attempt.Provider,
			Err:      err,
		})

		slog.Warn("provider failed, advancing to next",
			"tag", tag,
			"provider", attempt.Provider,
			"error", err,
			"remaining", len(attempts)-i-1,
		)
	}

	return nil, &AllProvidersFailedError{Attempts: failures}
}

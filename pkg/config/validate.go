package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	// Field is the dotted path of the invalid field.
	Field string

	// Message describes what is invalid.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration field %q: %s", e.Field, e.Message)
}

// Validate checks the configuration for internal consistency. It assumes
// defaults have already been applied.
func Validate(cfg *Config) error {
	if !slices.Contains(KnownProviders, cfg.Generation.PreferredProvider) {
		return &ValidationError{
			Field: "generation.preferred_provider",
			Message: fmt.Sprintf("unknown provider %q (known: %s)",
				cfg.Generation.PreferredProvider, strings.Join(KnownProviders, ", ")),
		}
	}

	if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 1 {
		return &ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("must be between 0 and 1, got %g", cfg.Generation.Temperature),
		}
	}

	if cfg.Generation.MaxOutputTokens < 1 {
		return &ValidationError{
			Field:   "generation.max_output_tokens",
			Message: "must be positive",
		}
	}

	budget := cfg.Generation.Budget
	if budget.Step < 1 {
		return &ValidationError{Field: "generation.budget.step", Message: "must be positive"}
	}
	if budget.Ceiling < cfg.Generation.MaxOutputTokens {
		return &ValidationError{
			Field: "generation.budget.ceiling",
			Message: fmt.Sprintf("must be at least max_output_tokens (%d), got %d",
				cfg.Generation.MaxOutputTokens, budget.Ceiling),
		}
	}
	if budget.MaxRetries < 0 {
		return &ValidationError{Field: "generation.budget.max_retries", Message: "must not be negative"}
	}

	for name := range cfg.Providers {
		if !slices.Contains(KnownProviders, name) {
			return &ValidationError{
				Field: "providers." + name,
				Message: fmt.Sprintf("unknown provider (known: %s)",
					strings.Join(KnownProviders, ", ")),
			}
		}
		if cfg.Providers[name].Timeout < 0 {
			return &ValidationError{
				Field:   "providers." + name + ".timeout",
				Message: "must not be negative",
			}
		}
	}

	if cfg.Server.ListenAddress == "" {
		return &ValidationError{Field: "server.listen_address", Message: "must not be empty"}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Telemetry.Logging.Level),
		}
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Telemetry.Logging.Format),
		}
	}

	if cfg.Store.TTL < 0 {
		return &ValidationError{Field: "store.ttl", Message: "must not be negative"}
	}

	return nil
}

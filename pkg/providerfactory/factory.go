// Package providerfactory constructs configured provider adapters from the
// service configuration and answers which adapters are usable right now.
package providerfactory

import (
	"fmt"
	"log/slog"

	"tidings-hq/tidings/pkg/config"
	"tidings-hq/tidings/pkg/providers"
	"tidings-hq/tidings/pkg/providers/anthropic"
	"tidings-hq/tidings/pkg/providers/gemini"
	"tidings-hq/tidings/pkg/providers/openai"
)

// Factory holds the adapters constructed once at process start. An adapter is
// constructible only when its credential is present; a missing credential
// silently disables the provider rather than erroring.
type Factory struct {
	preferred string
	adapters  map[string]providers.Adapter

	// priority is the fixed order Available returns adapters in.
	priority []string
}

// New builds every constructible adapter from the configuration. Construction
// happens exactly once; adapters are reused across calls.
func New(cfg *config.Config) (*Factory, error) {
	f := &Factory{
		preferred: cfg.Generation.PreferredProvider,
		adapters:  make(map[string]providers.Adapter),
		priority:  config.KnownProviders,
	}

	for _, name := range config.KnownProviders {
		pc, ok := cfg.Providers[name]
		if !ok || pc.APIKey == "" {
			slog.Debug("provider unconfigured, skipping", "provider", name)
			continue
		}

		adapter, err := newAdapter(name, pc, cfg.Generation.Budget)
		if err != nil {
			return nil, fmt.Errorf("failed to construct provider %q: %w", name, err)
		}
		f.adapters[name] = adapter
	}

	slog.Info("provider factory initialized",
		"preferred", f.preferred,
		"available", len(f.adapters),
	)

	return f, nil
}

// newAdapter constructs one adapter by name.
func newAdapter(name string, pc config.ProviderConfig, budget config.BudgetConfig) (providers.Adapter, error) {
	base := providers.ProviderConfig{
		Name:    name,
		BaseURL: pc.BaseURL,
		APIKey:  pc.APIKey,
		Model:   pc.Model,
		Timeout: pc.Timeout,
	}

	switch name {
	case "openai":
		return openai.NewProviderWithBudget(base, openai.BudgetPolicy{
			Step:       budget.Step,
			Ceiling:    budget.Ceiling,
			MaxRetries: budget.MaxRetries,
		})
	case "anthropic":
		return anthropic.NewProvider(base)
	case "gemini":
		return gemini.NewProvider(base)
	default:
		return nil, &providers.ConfigError{
			Provider: name,
			Field:    "name",
			Message:  "unsupported provider",
		}
	}
}

// Primary returns the preferred provider's adapter, or nil when that
// provider's credential is absent. Callers treat nil as "skip, do not error".
func (f *Factory) Primary() providers.Adapter {
	return f.adapters[f.preferred]
}

// Fallback returns a fixed secondary adapter distinct from the preferred
// provider, or nil when none is constructible.
func (f *Factory) Fallback() providers.Adapter {
	for _, name := range f.priority {
		if name == f.preferred {
			continue
		}
		if adapter, ok := f.adapters[name]; ok {
			return adapter
		}
	}
	return nil
}

// Available returns every constructible adapter with the preferred provider
// first, then the rest in fixed priority order. Callers that want to exhaust
// all options build their fallback chain from this.
func (f *Factory) Available() []providers.Adapter {
	out := make([]providers.Adapter, 0, len(f.adapters))
	if primary := f.Primary(); primary != nil {
		out = append(out, primary)
	}
	for _, name := range f.priority {
		if name == f.preferred {
			continue
		}
		if adapter, ok := f.adapters[name]; ok {
			out = append(out, adapter)
		}
	}
	return out
}

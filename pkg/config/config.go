// Package config loads, defaults, and validates the service configuration
// from YAML with environment variable overrides.
package config

import "time"

// Config is the root configuration for the service.
type Config struct {
	// Generation configures the LLM generation pipeline.
	Generation GenerationConfig `yaml:"generation"`

	// Providers maps provider names to their adapter configuration.
	// A provider without an API key is silently unconfigured, not an error.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Store configures the insight cache.
	Store StoreConfig `yaml:"store"`

	// Scheduler configures the periodic brief refresh.
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// GenerationConfig controls the generation pipeline.
type GenerationConfig struct {
	// PreferredProvider is the provider tried first ("openai", "anthropic",
	// "gemini"). When its credential is absent the factory skips it.
	PreferredProvider string `yaml:"preferred_provider"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// MaxOutputTokens is the default output-token ceiling.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// Budget bounds the truncation-driven retry on adapters that support it.
	Budget BudgetConfig `yaml:"budget"`
}

// BudgetConfig parameterizes the budget-increase retry.
type BudgetConfig struct {
	// Step is added to the token ceiling on each retry.
	Step int `yaml:"step"`

	// Ceiling is the hard upper bound on the token ceiling.
	Ceiling int `yaml:"ceiling"`

	// MaxRetries bounds how many times one call is re-issued.
	MaxRetries int `yaml:"max_retries"`
}

// ProviderConfig configures one provider adapter.
type ProviderConfig struct {
	// APIKey is the credential. Empty disables the provider.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Timeout bounds each call wall-clock.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// StoreConfig configures the SQLite insight cache.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// TTL is how long a cached insight stays fresh.
	TTL time.Duration `yaml:"ttl"`
}

// SchedulerConfig configures the periodic brief refresh.
type SchedulerConfig struct {
	// Enabled turns the scheduler on.
	Enabled bool `yaml:"enabled"`

	// RefreshSpec is the cron expression for brief refresh.
	RefreshSpec string `yaml:"refresh_spec"`
}

package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultPreferredProvider = "openai"
	DefaultTemperature       = 0.4
	DefaultMaxOutputTokens   = 4000

	DefaultBudgetStep       = 2000
	DefaultBudgetCeiling    = 8000
	DefaultBudgetMaxRetries = 2

	DefaultProviderTimeout = 30 * time.Second

	DefaultListenAddress = ":8080"
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 120 * time.Second
	DefaultIdleTimeout   = 120 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "tidings"

	DefaultStorePath = "tidings.db"
	DefaultStoreTTL  = time.Hour

	DefaultRefreshSpec = "@every 30m"
)

// ApplyDefaults fills zero-valued fields with sensible defaults. It is called
// by LoadConfig before validation; callers constructing a Config by hand can
// call it directly.
func ApplyDefaults(cfg *Config) {
	if cfg.Generation.PreferredProvider == "" {
		cfg.Generation.PreferredProvider = DefaultPreferredProvider
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = DefaultTemperature
	}
	if cfg.Generation.MaxOutputTokens == 0 {
		cfg.Generation.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Generation.Budget.Step == 0 {
		cfg.Generation.Budget.Step = DefaultBudgetStep
	}
	if cfg.Generation.Budget.Ceiling == 0 {
		cfg.Generation.Budget.Ceiling = DefaultBudgetCeiling
	}
	if cfg.Generation.Budget.MaxRetries == 0 {
		cfg.Generation.Budget.MaxRetries = DefaultBudgetMaxRetries
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for name, provider := range cfg.Providers {
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
			cfg.Providers[name] = provider
		}
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.TTL == 0 {
		cfg.Store.TTL = DefaultStoreTTL
	}

	if cfg.Scheduler.RefreshSpec == "" {
		cfg.Scheduler.RefreshSpec = DefaultRefreshSpec
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KnownProviders are the provider names the factory can construct, in
// priority order.
var KnownProviders = []string{"openai", "anthropic", "gemini"}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the convention
// TIDINGS_SECTION_FIELD (e.g. TIDINGS_SERVER_LISTEN_ADDRESS) and always take
// precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TIDINGS_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TIDINGS_GENERATION_PREFERRED_PROVIDER"); val != "" {
		cfg.Generation.PreferredProvider = val
	}
	if val := os.Getenv("TIDINGS_GENERATION_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Generation.Temperature = f
		}
	}
	if val := os.Getenv("TIDINGS_GENERATION_MAX_OUTPUT_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Generation.MaxOutputTokens = i
		}
	}

	for _, name := range KnownProviders {
		applyProviderEnvOverrides(cfg, name)
	}

	if val := os.Getenv("TIDINGS_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("TIDINGS_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("TIDINGS_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if val := os.Getenv("TIDINGS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TIDINGS_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TIDINGS_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}

	if val := os.Getenv("TIDINGS_STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}
	if val := os.Getenv("TIDINGS_STORE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Store.TTL = d
		}
	}

	if val := os.Getenv("TIDINGS_SCHEDULER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Scheduler.Enabled = b
		}
	}
	if val := os.Getenv("TIDINGS_SCHEDULER_REFRESH_SPEC"); val != "" {
		cfg.Scheduler.RefreshSpec = val
	}
}

// applyProviderEnvOverrides applies TIDINGS_PROVIDERS_<NAME>_<FIELD> overrides
// for one provider. A provider absent from the file springs into existence
// when any of its variables is set, which is how credential-only deployments
// configure providers without a YAML entry.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	provider, exists := cfg.Providers[providerName]
	prefix := fmt.Sprintf("TIDINGS_PROVIDERS_%s_", strings.ToUpper(providerName))

	modified := false
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
		modified = true
	}
	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
		modified = true
	}
	if val := os.Getenv(prefix + "MODEL"); val != "" {
		provider.Model = val
		modified = true
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
			modified = true
		}
	}

	if modified {
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		cfg.Providers[providerName] = provider
	} else if exists {
		cfg.Providers[providerName] = provider
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidings-hq/tidings/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply defaults and environment overrides,
and report whether the result is valid.

Examples:
  # Validate the default config
  tidings validate

  # Validate a specific file
  tidings validate --config /etc/tidings/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		configured := make([]string, 0, len(cfg.Providers))
		for _, name := range config.KnownProviders {
			if pc, ok := cfg.Providers[name]; ok && pc.APIKey != "" {
				configured = append(configured, name)
			}
		}

		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		fmt.Printf("  Preferred provider: %s\n", cfg.Generation.PreferredProvider)
		fmt.Printf("  Configured providers: %d\n", len(configured))
		for _, name := range configured {
			fmt.Printf("    - %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tidings",
	Short: "Tidings - resilient multi-provider news insights",
	Long: `Tidings generates daily briefs and keywords from ingested news articles.

It drives multiple LLM providers in a fixed fallback order, repairs malformed
model output instead of discarding it, and serves the results over HTTP:
  - Sequential provider fallback (OpenAI, Anthropic, Gemini)
  - Staged recovery of malformed JSON responses
  - Budget-increase retry on truncated output
  - SQLite-cached briefs with scheduled refresh`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/composureci/composure/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Display the configuration Composure resolved from defaults, the
user config (~/.config/composure/config.yaml), the project config
(.composure.yaml), and environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		displayConfig(cfg)
	},
}

// displayConfig prints all configuration values.
func displayConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}
	model := cfg.Anthropic.Model
	if model == "" {
		model = "(default)"
	}
	overrideDir := cfg.Prompts.OverrideDir
	if overrideDir == "" {
		overrideDir = "(none)"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("repository.base_url: %s\n", cfg.Repository.BaseURL)
	fmt.Printf("repository.top_k: %d\n", cfg.Repository.TopK)
	fmt.Printf("timeouts.reasoning: %s\n", cfg.Timeouts.Reasoning)
	fmt.Printf("timeouts.discovery: %s\n", cfg.Timeouts.Discovery)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.backoff: %s\n", cfg.Retry.Backoff)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("prompts.override_dir: %s\n", overrideDir)
	fmt.Printf("store.path: %s\n", storePath(cfg))
}

package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/composureci/composure/internal/capability"
	"github.com/composureci/composure/internal/config"
	"github.com/composureci/composure/internal/discovery"
	"github.com/composureci/composure/internal/pipeline"
	"github.com/composureci/composure/internal/prompts"
	"github.com/composureci/composure/internal/store"
)

// buildOrchestrator wires the pipeline's collaborators from configuration:
// the reasoning capability client, the repository discovery client, and
// the prompt template store. The capability client is returned alongside
// the orchestrator so callers can report its token usage.
func buildOrchestrator(cfg *config.Config) (*pipeline.Orchestrator, *prompts.Store, *capability.Client, error) {
	apiKey := ""
	if !cfg.Anthropic.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve API key: %w", err)
		}
		apiKey = key
	}

	reasoner, err := capability.NewClient(capability.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		CallTimeout:   cfg.Timeouts.Reasoning,
		Retry: capability.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.Retry.Backoff,
		},
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create capability client: %w", err)
	}

	discoverer := discovery.NewClient(discovery.ClientConfig{
		BaseURL: cfg.Repository.BaseURL,
		Timeout: cfg.Timeouts.Discovery,
	})

	templates, err := prompts.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load prompt templates: %w", err)
	}
	if cfg.Prompts.OverrideDir != "" {
		if err := templates.LoadOverrides(cfg.Prompts.OverrideDir); err != nil {
			return nil, nil, nil, fmt.Errorf("load prompt overrides: %w", err)
		}
	}

	orchestrator, err := pipeline.New(pipeline.Config{
		Reasoner:   reasoner,
		Discoverer: discoverer,
		Prompts:    templates,
		TopK:       cfg.Repository.TopK,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return orchestrator, templates, reasoner, nil
}

// storePath resolves the SQLite database location.
func storePath(cfg *config.Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return store.DefaultPath()
}

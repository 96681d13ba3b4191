// Package provider selects the generation backend from configuration.
package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/vigil/ai/anthropic"
	"github.com/teranos/vigil/ai/openrouter"
	"github.com/teranos/vigil/ai/tracker"
	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
)

// Provider represents an LLM provider type
type Provider string

const (
	// ProviderLocal uses local inference (Ollama, LocalAI)
	ProviderLocal Provider = "local"
	// ProviderOpenRouter uses OpenRouter.ai API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderAnthropic uses direct Anthropic API
	ProviderAnthropic Provider = "anthropic"
	// ProviderAuto selects based on configuration
	ProviderAuto Provider = "auto"
)

// AIClient is implemented by every provider client
type AIClient interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
	Provider() string
	Model() string
}

// ClientConfig holds what every client shares regardless of provider
type ClientConfig struct {
	Logger  *zap.SugaredLogger
	Tracker tracker.Recorder
}

// NewAIClient creates a client for cfg.Generation.Provider
func NewAIClient(cfg *am.Config, clientCfg ClientConfig) (AIClient, error) {
	p, err := ParseProvider(cfg.Generation.Provider)
	if err != nil {
		return nil, err
	}
	return NewAIClientWithProvider(cfg, p, clientCfg), nil
}

// NewAIClientWithProvider creates an AI client for a specific provider.
// Use ProviderAuto to let the factory decide based on configuration.
func NewAIClientWithProvider(cfg *am.Config, provider Provider, clientCfg ClientConfig) AIClient {
	switch provider {
	case ProviderLocal:
		return NewLocalClient(cfg.LocalInference, clientCfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg, clientCfg)
	case ProviderOpenRouter:
		return newOpenRouterClient(cfg, clientCfg)
	default:
		return autoSelectClient(cfg, clientCfg)
	}
}

// autoSelectClient picks the first usable provider.
// Priority: LocalInference (if enabled) → Anthropic (if API key set) → OpenRouter
func autoSelectClient(cfg *am.Config, clientCfg ClientConfig) AIClient {
	if cfg.LocalInference.Enabled && cfg.LocalInference.BaseURL != "" {
		return NewLocalClient(cfg.LocalInference, clientCfg)
	}
	if cfg.Anthropic.APIKey != "" {
		return newAnthropicClient(cfg, clientCfg)
	}
	return newOpenRouterClient(cfg, clientCfg)
}

func newAnthropicClient(cfg *am.Config, clientCfg ClientConfig) AIClient {
	return anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.Anthropic.APIKey,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Logger:    clientCfg.Logger,
		Tracker:   clientCfg.Tracker,
	})
}

func newOpenRouterClient(cfg *am.Config, clientCfg ClientConfig) AIClient {
	return openrouter.NewClient(openrouter.Config{
		APIKey:    cfg.OpenRouter.APIKey,
		Model:     cfg.OpenRouter.Model,
		MaxTokens: cfg.OpenRouter.MaxTokens,
		Logger:    clientCfg.Logger,
		Tracker:   clientCfg.Tracker,
	})
}

// GetAvailableProviders returns the providers that are configured
func GetAvailableProviders(cfg *am.Config) []Provider {
	var providers []Provider
	if cfg.LocalInference.Enabled {
		providers = append(providers, ProviderLocal)
	}
	if cfg.Anthropic.APIKey != "" {
		providers = append(providers, ProviderAnthropic)
	}
	if cfg.OpenRouter.APIKey != "" {
		providers = append(providers, ProviderOpenRouter)
	}
	return providers
}

// ParseProvider converts a string to a Provider type
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "ollama", "localai":
		return ProviderLocal, nil
	case "openrouter", "or":
		return ProviderOpenRouter, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "auto", "":
		return ProviderAuto, nil
	default:
		return "", errors.NewConfigError("unknown provider: %s (valid: local, openrouter, anthropic, auto)", s)
	}
}

var (
	_ AIClient = (*openrouter.Client)(nil)
	_ AIClient = (*anthropic.Client)(nil)
)

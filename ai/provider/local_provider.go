package provider

import (
	"strings"
	"time"

	"github.com/teranos/vigil/ai/openrouter"
	"github.com/teranos/vigil/am"
)

// NewLocalClient creates a client for a local inference server (Ollama,
// LocalAI, llama.cpp). They all serve the OpenAI-compatible API under /v1,
// so this is the OpenRouter client pointed at the local base URL without
// authentication or private-address blocking.
func NewLocalClient(cfg am.LocalInferenceConfig, clientCfg ClientConfig) *openrouter.Client {
	return openrouter.NewClient(openrouter.Config{
		Model:        cfg.Model,
		BaseURL:      localBaseURL(cfg.BaseURL),
		ProviderName: string(ProviderLocal),
		Local:        true,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:       clientCfg.Logger,
		Tracker:      clientCfg.Tracker,
	})
}

// localBaseURL appends /v1 unless the configured URL already ends in it
func localBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

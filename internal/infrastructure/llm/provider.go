package llm

import (
	"context"
	"fmt"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/ports"
)

// New selects a text generator for the configured provider. It returns nil
// without error when no API key is configured, which disables enrichment.
func New(ctx context.Context, cfg config.AIConfig) (ports.TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderGemini, "":
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

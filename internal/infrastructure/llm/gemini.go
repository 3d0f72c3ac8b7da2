package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/ports"
)

// GeminiClient implements ports.TextGenerator using Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client. The endpoint overrides the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.AIConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Generate sends prompt as a single user turn and returns the response text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return result.Text(), nil
}

// Package gen calls external text-generation backends with local retry,
// exponential backoff and ordered fallback across backends.
package gen

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Backend is one external text-generation service/model instance.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiBackend generates text through the Google GenAI API.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiBackend creates a backend bound to one Gemini model.
func NewGeminiBackend(ctx context.Context, apiKey, model string, temperature float32) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiBackend{client: client, model: model, temperature: temperature}, nil
}

func (b *GeminiBackend) Name() string { return b.model }

func (b *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents,
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(b.temperature),
		})
	if err != nil {
		return "", fmt.Errorf("%s generate failed: %w", b.model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s returned an empty candidate", b.model)
	}
	return text, nil
}

// Package llm implements the model gateway: a Gemini-backed text
// completion client, a nested token-bucket rate limiter, and a retrying
// wrapper that the agent core consumes as an opaque LLMClient.
package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"codescout/internal/logging"
	"codescout/internal/types"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultModel balances latency and quality for agent turns.
const DefaultModel = "gemini-2.5-flash"

// Gemini implements types.LLMClient over the Google GenAI API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ types.LLMClient = (*Gemini)(nil)

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.LLM("gemini client ready (model=%s)", model)
	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends a single-prompt completion request.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a completion request with a system prompt.
// Non-streaming: the agent loop consumes whole decisions, never deltas.
func (g *Gemini) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	logging.LLMDebug("generate: model=%s prompt=%d bytes", g.model, len(userPrompt))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	logging.LLMDebug("generate: reply=%d bytes", len(text))
	return text, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

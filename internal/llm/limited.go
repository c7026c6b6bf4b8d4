package llm

import (
	"context"
	"fmt"
	"time"

	"codescout/internal/logging"
	"codescout/internal/types"
)

// Limited wraps an LLMClient with rate limiting and bounded retry. It is
// what the agent core actually receives: an opaque client that may queue,
// delay, or retry before failing.
type Limited struct {
	Client     types.LLMClient
	Limiter    *Limiter
	MaxRetries int
}

var _ types.LLMClient = (*Limited)(nil)

// NewLimited wraps client with the given limiter. maxRetries counts
// retries, not attempts; 0 means a single attempt.
func NewLimited(client types.LLMClient, limiter *Limiter, maxRetries int) *Limited {
	return &Limited{Client: client, Limiter: limiter, MaxRetries: maxRetries}
}

func (c *Limited) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *Limited) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	estimated := estimateTokens(systemPrompt) + estimateTokens(userPrompt)

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := c.Limiter.Wait(ctx, estimated); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		result, err := c.Client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < c.MaxRetries {
			backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			logging.LLMDebug("retrying after error (attempt %d/%d): %v", attempt+1, c.MaxRetries, err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("all %d attempts failed, last error: %w", c.MaxRetries+1, lastErr)
}

// estimateTokens approximates the token cost of a prompt for TPM
// accounting. Four bytes per token is close enough for budget purposes.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}

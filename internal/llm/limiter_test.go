package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"codescout/internal/types"
)

func TestLimiterAdmitsBurstUpToCapacity(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerMinute: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx, 100); err != nil {
			t.Fatalf("request %d should be admitted immediately: %v", i+1, err)
		}
	}
}

func TestLimiterBlocksWhenExhausted(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerMinute: 1})

	if err := l.Wait(context.Background(), 10); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLimiterTokenCeiling(t *testing.T) {
	l := NewLimiter(LimiterConfig{TokensPerMinute: 1000})

	if err := l.Wait(context.Background(), 900); err != nil {
		t.Fatalf("within ceiling: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 900); err == nil {
		t.Error("second large request should have been delayed")
	}
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background(), 1_000_000); err != nil {
		t.Fatalf("nil limiter must admit everything: %v", err)
	}
}

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *flakyClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("503 overloaded")
	}
	return "ok", nil
}

var _ types.LLMClient = (*flakyClient)(nil)

func TestLimitedRetriesTransientFailures(t *testing.T) {
	client := &flakyClient{failures: 2}
	limited := NewLimited(client, nil, 3)

	result, err := limited.CompleteWithSystem(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("expected recovery after retries: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q", result)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestLimitedGivesUpAfterMaxRetries(t *testing.T) {
	client := &flakyClient{failures: 10}
	limited := NewLimited(client, nil, 2)

	_, err := limited.CompleteWithSystem(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", client.calls)
	}
}

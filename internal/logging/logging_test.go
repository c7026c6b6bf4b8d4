package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetReturnsNamedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Agent("turn %d complete", 3)
	Tools("dispatching %s", "listFiles")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "agent" {
		t.Errorf("logger name = %q, want %q", entries[0].LoggerName, "agent")
	}
	if entries[0].Message != "turn 3 complete" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if entries[1].LoggerName != "tools" {
		t.Errorf("logger name = %q, want %q", entries[1].LoggerName, "tools")
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	AgentDebug("should not appear")
	Agent("should appear")

	if got := len(logs.All()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestGetCachesPerCategory(t *testing.T) {
	a := Get(CategoryIndex)
	b := Get(CategoryIndex)
	if a != b {
		t.Error("Get should return the same logger for the same category")
	}
}

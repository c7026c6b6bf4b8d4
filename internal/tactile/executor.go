// Package tactile is the agent's write path: shell execution and file
// writes. Nothing here is reachable outside an approved plan.
package tactile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"codescout/internal/logging"
)

// Config bounds plan-step execution.
type Config struct {
	// Root is the workspace directory commands run in and file paths
	// resolve against.
	Root string
	// CommandTimeout caps a single executeCommand step.
	CommandTimeout time.Duration
	// MaxOutputBytes truncates combined stdout/stderr beyond this size.
	MaxOutputBytes int
}

// DefaultConfig returns the standard execution limits for root.
func DefaultConfig(root string) Config {
	return Config{
		Root:           root,
		CommandTimeout: 2 * time.Minute,
		MaxOutputBytes: 64 * 1024,
	}
}

// Executor runs approved plan steps directly on the host.
type Executor struct {
	config Config
}

// NewExecutor creates an executor with the given limits.
func NewExecutor(config Config) *Executor {
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = DefaultConfig("").CommandTimeout
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = DefaultConfig("").MaxOutputBytes
	}
	logging.TactileDebug("executor created (root=%s, timeout=%s, maxOutput=%d)",
		config.Root, config.CommandTimeout, config.MaxOutputBytes)
	return &Executor{config: config}
}

// WriteFile creates or overwrites a workspace file, creating parent
// directories as needed. Returns a short human-readable summary.
func (e *Executor) WriteFile(ctx context.Context, path, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Tactile("wrote %s (%d bytes)", path, len(content))
	return fmt.Sprintf("Wrote %d bytes to %s.", len(content), path), nil
}

// ExecuteCommand runs a shell command in the workspace root with the
// process environment inherited. Output is combined stdout/stderr,
// truncated at the configured cap. A non-zero exit is an error carrying
// the captured output.
func (e *Executor) ExecuteCommand(ctx context.Context, command string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.CommandTimeout)
	defer cancel()

	start := time.Now()
	logging.Tactile("executing: %s", command)

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = e.config.Root
	cmd.Env = os.Environ()

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := e.truncate(buf.String())
	logging.TactileDebug("command finished in %v (err=%v, %d output bytes)",
		time.Since(start), err, buf.Len())

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s: %s", e.config.CommandTimeout, command)
	}
	if err != nil {
		if output != "" {
			return "", fmt.Errorf("command failed (%v):\n%s", err, output)
		}
		return "", fmt.Errorf("command failed: %w", err)
	}
	if output == "" {
		return "Command completed with no output.", nil
	}
	return output, nil
}

func (e *Executor) truncate(s string) string {
	if len(s) <= e.config.MaxOutputBytes {
		return strings.TrimRight(s, "\n")
	}
	return s[:e.config.MaxOutputBytes] + "\n... (output truncated)"
}

func (e *Executor) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return filepath.Join(e.config.Root, clean), nil
}

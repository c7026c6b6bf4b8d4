package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 20, cfg.Agent.TurnBudget)
	assert.Equal(t, 5*time.Minute, cfg.PromptTimeout())
}

func TestFileValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gemini-2.5-pro
agent:
  turn_budget: 8
  prompt_timeout: 30s
server:
  addr: 0.0.0.0:9000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Agent.TurnBudget)
	assert.Equal(t, 30*time.Second, cfg.PromptTimeout())
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	// Untouched sections keep defaults.
	assert.Equal(t, 10, cfg.LLM.RequestsPerMinute)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: from-file\n  model: from-file-model\n"), 0o644))

	t.Setenv("SCOUT_API_KEY", "from-env")
	t.Setenv("SCOUT_MODEL", "from-env-model")
	t.Setenv("SCOUT_TURN_BUDGET", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "from-env-model", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Agent.TurnBudget)
}

func TestGeminiKeyIsFallbackOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: from-file\n"), 0o644))

	t.Setenv("SCOUT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	// A key set in the file takes precedence over GEMINI_API_KEY.
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
}

func TestInvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  turn_budget: -1\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "turn_budget")

	require.NoError(t, os.WriteFile(path, []byte("agent:\n  prompt_timeout: nonsense\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "prompt_timeout")
}

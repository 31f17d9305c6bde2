package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingEverywhereIsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.Provider)
	assert.False(t, cfg.LLM.Configured())
}

func TestLoadConfigProjectFileWinsOverXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "rlm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "rlm", "config.toml"),
		[]byte("[llm]\nprovider = \"openai\"\napi_key = \"xdg-key\"\n"), 0o644))

	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".claude"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, ".claude", "rlm.toml"),
		[]byte("[llm]\nprovider = \"anthropic\"\napi_key = \"project-key\"\nmodel = \"claude-3-5-haiku-20241022\"\n\n[update]\nauto_update = true\n"), 0o644))

	cfg, err := LoadConfig(project)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "project-key", cfg.LLM.APIKey)
	assert.True(t, cfg.Update.AutoUpdate)
}

func TestLoadConfigFallsBackToXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "rlm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "rlm", "config.toml"),
		[]byte("[llm]\nprovider = \"ollama\"\nbase_url = \"http://localhost:11434/v1\"\n"), 0o644))

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.True(t, cfg.LLM.Configured(), "local ollama needs no api key")
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".claude"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, ".claude", "rlm.toml"),
		[]byte("[llm]\nprovider = \"openai\"\napi_key = \"file-key\"\n"), 0o644))

	t.Setenv("RLM_LLM_PROVIDER", "OpenRouter")
	t.Setenv("RLM_LLM_API_KEY", "env-key")

	cfg, err := LoadConfig(project)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.LLM.Provider, "env provider is lowercased and wins")
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
}

func TestConfigured(t *testing.T) {
	assert.False(t, LLMConfig{}.Configured())
	assert.False(t, LLMConfig{Provider: "openai"}.Configured())
	assert.True(t, LLMConfig{Provider: "openai", APIKey: "k"}.Configured())
	assert.True(t, LLMConfig{Provider: "ollama"}.Configured())
}

func TestGetDBPathHonorsOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "nested", "rlm.db")
	t.Setenv("RLM_DB_PATH", override)

	path, err := GetDBPath(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, override, path)
	_, statErr := os.Stat(filepath.Dir(override))
	assert.NoError(t, statErr, "parent directory is created")
}

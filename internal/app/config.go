// Package app resolves on-disk layout: the project's .claude directory, the
// store path within it, and the [llm]/[update] TOML configuration.
package app

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LLMConfig carries the summarizer capability's connection details.
type LLMConfig struct {
	Provider string `toml:"provider"` // anthropic | openai | ollama | openrouter
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

// UpdateConfig carries the (externally implemented) auto-update pipeline's
// trigger flag. This repo never acts on it beyond exposing the field.
type UpdateConfig struct {
	AutoUpdate bool `toml:"auto_update"`
}

// Config is the parsed contents of rlm.toml.
type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	Update UpdateConfig `toml:"update"`
}

const appName = "rlm"

// ClaudeDir returns <projectDir>/.claude.
func ClaudeDir(projectDir string) string {
	return filepath.Join(projectDir, ".claude")
}

// PlansDir returns <projectDir>/.claude/plans, a host-owned directory this
// system consults but never writes to.
func PlansDir(projectDir string) string {
	return filepath.Join(ClaudeDir(projectDir), "plans")
}

// projectConfigPath returns <projectDir>/.claude/rlm.toml.
func projectConfigPath(projectDir string) string {
	return filepath.Join(ClaudeDir(projectDir), appName+".toml")
}

// xdgConfigPath returns $XDG_CONFIG_HOME/rlm/config.toml, or its platform
// equivalent (%APPDATA%\rlm\config.toml on Windows).
func xdgConfigPath() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName, "config.toml"), nil
		}
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// LoadConfig resolves configuration in the search order from the external
// interfaces spec: project .claude/rlm.toml, then the XDG (or platform)
// config file, then environment variables prefixed RLM_LLM_. Env vars
// override whatever the file search found for any field they set, since an
// operator setting RLM_LLM_API_KEY expects it to win regardless of what a
// checked-in project config says.
func LoadConfig(projectDir string) (Config, error) {
	var cfg Config

	if c, err := loadConfigFile(projectConfigPath(projectDir)); err == nil {
		cfg = c
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	} else {
		xdgPath, xerr := xdgConfigPath()
		if xerr == nil {
			if c, err := loadConfigFile(xdgPath); err == nil {
				cfg = c
			} else if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}

	applyLLMEnvOverrides(&cfg.LLM)
	return cfg, nil
}

func loadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyLLMEnvOverrides(cfg *LLMConfig) {
	if v := os.Getenv("RLM_LLM_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("RLM_LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("RLM_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("RLM_LLM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
}

// Configured reports whether a summarizer capability is usable: a provider
// and (for all but a local ollama endpoint) an API key are both set.
func (c LLMConfig) Configured() bool {
	if c.Provider == "" {
		return false
	}
	if c.Provider == "ollama" {
		return true
	}
	return c.APIKey != ""
}

// disableFlagPath returns ~/.claude/rlm-disabled, whose presence pauses
// every hook handler.
func disableFlagPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "rlm-disabled"), nil
}

// HooksDisabled reports whether the user has paused all hook handlers by
// creating the disable-flag file.
func HooksDisabled() bool {
	path, err := disableFlagPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

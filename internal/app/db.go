package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDBPath resolves <projectDir>/.claude/rlm.db, creating the .claude
// directory if needed. An RLM_DB_PATH environment variable overrides the
// project-scoped default entirely, for tests and for hosts that want a
// shared store outside any single project.
func GetDBPath(projectDir string) (string, error) {
	if override := os.Getenv("RLM_DB_PATH"); override != "" {
		return EnsureDBDir(override)
	}
	return EnsureDBDir(filepath.Join(ClaudeDir(projectDir), "rlm.db"))
}

// EnsureDBDir creates dbPath's parent directory if missing and returns dbPath.
func EnsureDBDir(dbPath string) (string, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}

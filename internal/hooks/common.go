package hooks

import (
	"context"
	"database/sql"
	"os"

	"github.com/dullfig/claude-rlm/internal/app"
	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

// openStore resolves the project directory, opens and migrates its store
// file, and returns both. A *models.StorageUnavailableError is returned on
// failure; the caller logs it and exits 0 per §7 (hooks never block the
// host on a storage failure).
func openStore(in Input) (db *sql.DB, projectDir string, err error) {
	projectDir = in.CWD
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	dbPath, err := app.GetDBPath(projectDir)
	if err != nil {
		return nil, projectDir, &models.StorageUnavailableError{Path: dbPath, Err: err}
	}
	db, err = store.OpenDB(dbPath)
	if err != nil {
		return nil, projectDir, &models.StorageUnavailableError{Path: dbPath, Err: err}
	}
	if err := store.MigrateDB(db, dbPath); err != nil {
		_ = db.Close()
		return nil, projectDir, &models.StorageUnavailableError{Path: dbPath, Err: err}
	}
	return db, projectDir, nil
}

// summarizerFor loads config for projectDir and constructs the configured
// summarizer provider, or nil when none is configured.
func summarizerFor(projectDir string) summarizer.Provider {
	cfg, err := app.LoadConfig(projectDir)
	if err != nil {
		return nil
	}
	return summarizer.New(cfg.LLM)
}

// background is the context every hook handler uses: no deadline, per §5 —
// hooks must finish fast by construction (a handful of store writes).
func background() context.Context {
	return context.Background()
}

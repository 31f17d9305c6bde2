// Package store is the embedded relational store: connection management,
// migrations, retry, and the domain CRUD/FTS operations over sessions,
// turns, symbols, knowledge entries, file hashes, VCS state, and the
// background task queue.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dullfig/claude-rlm/internal/app"
	_ "modernc.org/sqlite"
)

// CloseDB runs PRAGMA optimize then closes the connection. Use this instead
// of db.Close() so query-planner statistics are flushed before shutdown.
func CloseDB(db *sql.DB) error {
	_, _ = db.ExecContext(context.Background(), "PRAGMA optimize")
	return db.Close()
}

var validCheckpointModes = map[string]bool{
	"PASSIVE":  true,
	"FULL":     true,
	"TRUNCATE": true,
	"RESTART":  true,
}

// CheckpointWAL triggers a WAL checkpoint. mode must be one of PASSIVE,
// FULL, TRUNCATE, RESTART.
func CheckpointWAL(ctx context.Context, db *sql.DB, mode string) error {
	if !validCheckpointModes[mode] {
		return fmt.Errorf("invalid WAL checkpoint mode %q", mode)
	}
	_, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint("+mode+")")
	return err
}

// defaultBusyTimeoutMS is the SQLite busy_timeout in milliseconds. Override
// with RLM_BUSY_TIMEOUT_MS for environments with high contention.
const defaultBusyTimeoutMS = 5000

// InitDB resolves the project database path and opens it with migrations
// applied.
func InitDB(projectDir string) (*sql.DB, error) {
	dbPath, err := app.GetDBPath(projectDir)
	if err != nil {
		return nil, err
	}
	return InitDBWithPath(dbPath)
}

// OpenDB opens a database connection and configures SQLite pragmas but does
// NOT run migrations. Pair with MigrateDB for callers that need explicit
// control over migration timing (the server runs it once at startup; hooks
// run it on every invocation since they are cheap and idempotent).
func OpenDB(dbPath string) (*sql.DB, error) {
	absPath, err := app.EnsureDBDir(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", normalizeSQLiteDSN(absPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection doubles as the process-wide mutual-exclusion lock
	// described in the concurrency model: database/sql serializes callers
	// waiting on the one connection, so no separate sync.Mutex is needed.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busyTimeout := defaultBusyTimeoutMS
	if v := os.Getenv("RLM_BUSY_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			busyTimeout = parsed
		}
	}

	pragmas := []string{
		// busy_timeout first so subsequent pragmas (including WAL) wait on locks.
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=134217728", // 128MB virtual, not physical
		"PRAGMA cache_size=-20000",   // ~20MB page cache
		"PRAGMA wal_autocheckpoint=1000",
	}

	for _, pragma := range pragmas {
		if err := RetryWithBackoff(context.Background(), func() error {
			_, err := db.ExecContext(context.Background(), pragma)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	return db, nil
}

// InitDBWithPath opens a database at an explicit path and runs migrations.
func InitDBWithPath(dbPath string) (*sql.DB, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := MigrateDB(db, dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func normalizeSQLiteDSN(dbPath string) string {
	// _txlock=immediate makes every BeginTx use BEGIN IMMEDIATE, avoiding the
	// writer-starvation deadlock a BEGIN DEFERRED default produces under
	// contention. Exception: :memory: DSNs, where IMMEDIATE locking can
	// deadlock on the shared-cache connection used by in-process tests.
	if strings.HasPrefix(dbPath, "file:") {
		if strings.Contains(dbPath, ":memory:") {
			return dbPath
		}
		if strings.Contains(dbPath, "_txlock=") {
			return dbPath
		}
		if strings.Contains(dbPath, "?") {
			return dbPath + "&_txlock=immediate"
		}
		return dbPath + "?_txlock=immediate"
	}

	if dbPath == ":memory:" {
		return "file::memory:?cache=shared"
	}

	return "file:" + dbPath + "?mode=rwc&_txlock=immediate"
}

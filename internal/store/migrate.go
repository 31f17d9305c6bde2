package store

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MigrateDB runs all pending migrations with a file lock to prevent
// concurrent migration races between the server and a hook process racing
// on a fresh database file. Skipped for in-memory databases (tests).
func MigrateDB(db *sql.DB, dbPath string) error {
	if dbPath != ":memory:" && !strings.Contains(dbPath, ":memory:") {
		lockF, err := lockFile(dbPath)
		if err != nil {
			return fmt.Errorf("migration lock: %w", err)
		}
		defer unlockFile(lockF)
	}
	return RunMigrations(db)
}

// SchemaVersion returns the current and latest migration versions. current
// is 0 for a fresh database with no goose_db_version table yet.
func SchemaVersion(db *sql.DB) (current int64, latest int64, err error) {
	goose.SetBaseFS(embedMigrations)
	goose.SetVerbose(false)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, 0, fmt.Errorf("set dialect: %w", err)
	}

	current, err = goose.GetDBVersion(db)
	if err != nil {
		current = 0
	}

	latest, err = latestMigrationVersion()
	if err != nil {
		return current, 0, fmt.Errorf("determine latest version: %w", err)
	}
	return current, latest, nil
}

func latestMigrationVersion() (int64, error) {
	entries, err := embedMigrations.ReadDir("migrations")
	if err != nil {
		return 0, fmt.Errorf("read migrations dir: %w", err)
	}
	var max int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		idx := strings.IndexByte(name, '_')
		if idx <= 0 {
			continue
		}
		v, err := strconv.ParseInt(name[:idx], 10, 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max, nil
}

// RunMigrations applies all pending migrations using goose. goose's dialect
// name "sqlite3" is independent of the database/sql driver name "sqlite"
// registered by modernc.org/sqlite; the dialect only controls SQL
// generation, not which driver handles the connection.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetVerbose(false)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.Up(db, "migrations")
}

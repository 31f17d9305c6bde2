package watch

import (
	stdctx "context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSkipDir(t *testing.T) {
	assert.True(t, skipDir(".git"))
	assert.True(t, skipDir("node_modules"))
	assert.False(t, skipDir("internal"))
	assert.False(t, skipDir("cmd"))
}

func TestNewWatchesTreeAndCloses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "dep"), 0o755))

	db := openTestDB(t)
	w, err := New(db, dir, nil)
	require.NoError(t, err)
	w.Close()
}

func TestFlushReindexesExistingAndPurgesRemoved(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc Foo() {}\n"), 0o644))

	w := &Watcher{db: db, root: dir, logger: slog.Default()}

	w.flush(ctx, map[string]bool{path: true})
	syms, err := store.FileSymbols(ctx, db, path)
	require.NoError(t, err)
	require.NotEmpty(t, syms)

	require.NoError(t, os.Remove(path))
	w.flush(ctx, map[string]bool{path: true})
	syms, err = store.FileSymbols(ctx, db, path)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

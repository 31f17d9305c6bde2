package index

import (
	stdctx "context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWalkFilesSkipsVendoredAndIgnored(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "node_modules/dep.js", "module.exports = 1\n")
	writeFile(t, dir, "vendor/lib.go", "package lib\n")
	writeFile(t, dir, "notes.txt", "not source\n")
	writeFile(t, dir, "generated/out.go", "package out\n")
	writeFile(t, dir, ".gitignore", "generated/\n")

	files, err := WalkFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestIndexFileReplacesSymbols(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a\n\nfunc Foo() {}\n\nfunc Bar() {}\n")

	require.NoError(t, IndexFile(ctx, db, path))
	syms, err := store.FileSymbols(ctx, db, path)
	require.NoError(t, err)
	require.Len(t, syms, 2)

	// A reindex after an edit replaces, never accumulates.
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, IndexFile(ctx, db, path))
	syms, err = store.FileSymbols(ctx, db, path)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Foo", syms[0].Name)
}

func TestIndexFileMissingFileIsIndexError(t *testing.T) {
	db := openTestDB(t)
	err := IndexFile(stdctx.Background(), db, filepath.Join(t.TempDir(), "gone.go"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIndexFailed)
}

func TestDetectStaleFindsNewModifiedAndDeleted(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.go", "package a\n\nfunc Foo() {}\n")
	bPath := writeFile(t, dir, "b.go", "package a\n\ntype Bar struct{}\n")

	// Backdated mtimes keep the freshly-indexed assertion below clear of the
	// one-second granularity of the store's last-indexed timestamps.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(aPath, past, past))
	require.NoError(t, os.Chtimes(bPath, past, past))

	// Nothing indexed yet: everything on disk is stale.
	stale, err := DetectStale(ctx, db, dir)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	_, err = IndexProject(ctx, db, dir)
	require.NoError(t, err)
	stale, err = DetectStale(ctx, db, dir)
	require.NoError(t, err)
	assert.Empty(t, stale, "freshly indexed tree has no stale files")

	// A future mtime marks the file stale without re-reading content.
	require.NoError(t, os.Chtimes(aPath, time.Now().Add(2*time.Hour), time.Now().Add(2*time.Hour)))
	// A deleted file is reported stale so the caller can purge its symbols.
	require.NoError(t, os.Remove(bPath))

	stale, err = DetectStale(ctx, db, dir)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	byPath := map[string]StaleFile{}
	for _, s := range stale {
		byPath[s.Path] = s
	}
	assert.False(t, byPath[aPath].Deleted)
	assert.True(t, byPath[bPath].Deleted)
}

func TestReindexStalePurgesDeletedFiles(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a\n\nfunc Foo() {}\n")

	_, err := IndexProject(ctx, db, dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	report, err := ReindexStale(ctx, db, dir)
	require.NoError(t, err)
	assert.Empty(t, report.Failed)

	syms, err := store.FileSymbols(ctx, db, path)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

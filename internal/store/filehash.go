package store

import (
	"context"
	"database/sql"
)

// FileHashes returns the stored (file_path -> content_hash) map for a
// project, used by the hash catch-up engine to diff against a fresh walk.
func FileHashes(ctx context.Context, db *sql.DB, projectDir string) (map[string]uint64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT file_path, content_hash FROM file_hashes WHERE project_dir = ?
	`, projectDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]uint64)
	for rows.Next() {
		var path string
		var hash int64
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		// SQLite INTEGER columns are signed 64-bit; xxhash's uint64 is stored
		// and reloaded via its raw bit pattern, not its numeric value.
		out[path] = uint64(hash)
	}
	return out, rows.Err()
}

// ReplaceFileHashes replaces every stored hash row for a project with the
// given (file_path -> content_hash) snapshot in one transaction.
func ReplaceFileHashes(ctx context.Context, db *sql.DB, projectDir string, hashes map[string]uint64) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM file_hashes WHERE project_dir = ?`, projectDir); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO file_hashes (project_dir, file_path, content_hash, updated_at)
			VALUES (?, ?, ?, datetime('now'))
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for path, hash := range hashes {
			if _, err := stmt.ExecContext(ctx, projectDir, path, int64(hash)); err != nil {
				return wrapIntegrity("replace_file_hashes", err)
			}
		}
		return nil
	})
}

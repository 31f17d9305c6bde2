package store

import (
	"context"
	"database/sql"
)

// VCSLastCommit returns the stored last-observed commit for a project, or
// "" if the VCS catch-up engine has never run there.
func VCSLastCommit(ctx context.Context, db *sql.DB, projectDir string) (string, error) {
	var commit string
	err := db.QueryRowContext(ctx, `
		SELECT last_commit FROM vcs_state WHERE project_dir = ?
	`, projectDir).Scan(&commit)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return commit, err
}

// SetVCSLastCommit upserts the stored commit pointer for a project.
func SetVCSLastCommit(ctx context.Context, db *sql.DB, projectDir, commit string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vcs_state (project_dir, last_commit, updated_at)
			VALUES (?, ?, datetime('now'))
			ON CONFLICT(project_dir) DO UPDATE SET
				last_commit = excluded.last_commit,
				updated_at = excluded.updated_at
		`, projectDir, commit)
		return err
	})
}

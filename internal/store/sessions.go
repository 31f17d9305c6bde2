package store

import (
	"context"
	"database/sql"

	"github.com/dullfig/claude-rlm/internal/models"
)

// EnsureSession idempotently inserts a session row for sessionID if one does
// not already exist.
func EnsureSession(ctx context.Context, db *sql.DB, sessionID, projectDir string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, project_dir)
			VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING
		`, sessionID, projectDir)
		if err != nil {
			return wrapIntegrity("ensure_session", err)
		}
		return nil
	})
}

// EndSession sets ended_at and the optional summary on a session.
func EndSession(ctx context.Context, db *sql.DB, sessionID, summary string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE sessions SET ended_at = datetime('now'), summary = ?
			WHERE id = ?
		`, summary, sessionID)
		if err != nil {
			return wrapIntegrity("end_session", err)
		}
		return nil
	})
}

// SetSessionSummary updates only the summary column, used by the
// distill_session background task after the distiller has run.
func SetSessionSummary(ctx context.Context, db *sql.DB, sessionID, summary string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE sessions SET summary = ? WHERE id = ?`, summary, sessionID)
		return err
	})
}

// GetSession fetches one session by id.
func GetSession(ctx context.Context, db *sql.DB, sessionID string) (*models.Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, project_dir, started_at, ended_at, COALESCE(summary, '')
		FROM sessions WHERE id = ?
	`, sessionID)
	return scanSession(row)
}

// RecentSessions returns the most recently started sessions for a project,
// newest first.
func RecentSessions(ctx context.Context, db *sql.DB, projectDir string, limit int) ([]*models.Session, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, project_dir, started_at, ended_at, COALESCE(summary, '')
		FROM sessions WHERE project_dir = ?
		ORDER BY started_at DESC LIMIT ?
	`, projectDir, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var endedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.ProjectDir, &s.StartedAt, &endedAt, &s.Summary); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return &s, nil
}

func scanSessionRows(rows *sql.Rows) (*models.Session, error) {
	return scanSession(rows)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dullfig/claude-rlm/internal/models"
)

// IndexTurn assigns the next dense turn_number for the session and inserts
// the turn with its file references in one transaction. Turn numbering
// reads max+1 under the store's single-connection writer lock, so no
// explicit advisory lock is needed beyond the transaction itself.
func IndexTurn(ctx context.Context, db *sql.DB, t *models.Turn) (int64, error) {
	var newID int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		var maxNum sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(turn_number) FROM turns WHERE session_id = ?`, t.SessionID,
		).Scan(&maxNum); err != nil {
			return err
		}
		turnNumber := int64(1)
		if maxNum.Valid {
			turnNumber = maxNum.Int64 + 1
		}

		var metadata any
		if len(t.Metadata) > 0 {
			metadata = []byte(t.Metadata)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, turn_number, role, turn_type, content, content_summary, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.SessionID, turnNumber, string(t.Role), string(t.TurnType), t.Content, nullableString(t.ContentSummary), metadata)
		if err != nil {
			return wrapIntegrity("index_turn", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, f := range t.Files {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO turn_files (turn_id, file_path, action)
				VALUES (?, ?, ?)
			`, id, f.FilePath, string(f.Action)); err != nil {
				return wrapIntegrity("index_turn_file", err)
			}
		}

		t.TurnNumber = turnNumber
		newID = id
		return nil
	})
	return newID, err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetTurnFiles loads the file references attached to a turn.
func GetTurnFiles(ctx context.Context, db *sql.DB, turnID int64) ([]models.TurnFile, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT turn_id, file_path, action FROM turn_files WHERE turn_id = ?
	`, turnID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TurnFile
	for rows.Next() {
		var f models.TurnFile
		var action string
		if err := rows.Scan(&f.TurnID, &f.FilePath, &action); err != nil {
			return nil, err
		}
		f.Action = models.FileAction(action)
		out = append(out, f)
	}
	return out, rows.Err()
}

// SessionTurns returns every turn of a session, ascending by turn_number,
// with file references attached.
func SessionTurns(ctx context.Context, db *sql.DB, sessionID string) ([]*models.Turn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, turn_number, timestamp, role, turn_type, content,
		       COALESCE(content_summary, ''), metadata
		FROM turns WHERE session_id = ?
		ORDER BY turn_number ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, turn := range out {
		files, err := GetTurnFiles(ctx, db, turn.ID)
		if err != nil {
			return nil, err
		}
		turn.Files = files
	}
	return out, nil
}

// SessionTurnsByType returns every turn of a session with the given type,
// ascending by turn_number.
func SessionTurnsByType(ctx context.Context, db *sql.DB, sessionID string, turnType models.TurnType) ([]*models.Turn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, turn_number, timestamp, role, turn_type, content,
		       COALESCE(content_summary, ''), metadata
		FROM turns WHERE session_id = ? AND turn_type = ?
		ORDER BY turn_number ASC
	`, sessionID, string(turnType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

func scanTurn(rows *sql.Rows) (*models.Turn, error) {
	var t models.Turn
	var roleStr, typeStr string
	var metadata sql.NullString
	if err := rows.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.Timestamp, &roleStr, &typeStr,
		&t.Content, &t.ContentSummary, &metadata); err != nil {
		return nil, err
	}
	t.Role = models.Role(roleStr)
	t.TurnType = models.TurnType(typeStr)
	if metadata.Valid {
		t.Metadata = json.RawMessage(metadata.String)
	}
	return &t, nil
}

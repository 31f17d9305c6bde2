package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDBWithPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// indexTurn is a test helper that inserts a minimal turn and returns its id.
func indexTurn(t *testing.T, db *sql.DB, sessionID string, turnType models.TurnType, content string, files ...models.TurnFile) int64 {
	t.Helper()
	id, err := IndexTurn(context.Background(), db, &models.Turn{
		SessionID: sessionID,
		Role:      models.RoleUser,
		TurnType:  turnType,
		Content:   content,
		Files:     files,
	})
	require.NoError(t, err)
	return id
}

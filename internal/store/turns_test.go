package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
)

func TestTurnNumbersAreDenseAndOrdered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	for i := 0; i < 5; i++ {
		indexTurn(t, db, "sess-1", models.TurnTypeRequest, "turn content")
	}

	turns, err := SessionTurns(ctx, db, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, int64(i+1), turn.TurnNumber)
	}
}

func TestTurnNumbersIndependentPerSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-a", "/proj"))
	require.NoError(t, EnsureSession(ctx, db, "sess-b", "/proj"))

	indexTurn(t, db, "sess-a", models.TurnTypeRequest, "a1")
	indexTurn(t, db, "sess-a", models.TurnTypeRequest, "a2")
	indexTurn(t, db, "sess-b", models.TurnTypeRequest, "b1")

	turnsB, err := SessionTurns(ctx, db, "sess-b")
	require.NoError(t, err)
	require.Len(t, turnsB, 1)
	assert.Equal(t, int64(1), turnsB[0].TurnNumber)
}

func TestTurnRejectedWithoutSession(t *testing.T) {
	db := openTestDB(t)
	_, err := IndexTurn(context.Background(), db, &models.Turn{
		SessionID: "no-such-session",
		Role:      models.RoleUser,
		TurnType:  models.TurnTypeRequest,
		Content:   "orphan",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIntegrityViolation)
}

func TestTurnFilesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	id := indexTurn(t, db, "sess-1", models.TurnTypeCodeEdit, "edited handler",
		models.TurnFile{FilePath: "/proj/a.go", Action: models.FileActionEdit},
		models.TurnFile{FilePath: "/proj/b.go", Action: models.FileActionCreate},
	)

	files, err := GetTurnFiles(ctx, db, id)
	require.NoError(t, err)
	require.Len(t, files, 2)
	paths := []string{files[0].FilePath, files[1].FilePath}
	assert.Contains(t, paths, "/proj/a.go")
	assert.Contains(t, paths, "/proj/b.go")
}

func TestFullTextRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))
	id := indexTurn(t, db, "sess-1", models.TurnTypeRequest, "add JWT authentication to the login flow")

	results, err := SearchTurns(ctx, db, "JWT", 10, "", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].TurnID)

	// Updating the content through the store must keep the FTS mirror in
	// sync via the update trigger: the old token stops matching, the new
	// token starts.
	_, err = db.ExecContext(ctx, `UPDATE turns SET content = 'switch to OAuth instead' WHERE id = ?`, id)
	require.NoError(t, err)

	results, err = SearchTurns(ctx, db, "JWT", 10, "", "")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = SearchTurns(ctx, db, "OAuth", 10, "", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].TurnID)
}

func TestSearchTurnsScopedBySessionAndType(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))
	require.NoError(t, EnsureSession(ctx, db, "sess-2", "/proj"))
	indexTurn(t, db, "sess-1", models.TurnTypeRequest, "configure redis caching")
	indexTurn(t, db, "sess-2", models.TurnTypeBashCmd, "redis-cli ping for the caching layer")

	results, err := SearchTurns(ctx, db, "caching", 10, "sess-1", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sess-1", results[0].SessionID)

	results, err = SearchTurns(ctx, db, "caching", 10, "", string(models.TurnTypeBashCmd))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, string(models.TurnTypeBashCmd), results[0].TurnType)
}

func TestFTSOperatorCharactersAreLiteral(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))
	indexTurn(t, db, "sess-1", models.TurnTypeRequest, `choose redis OR memcached for the "hot" cache`)

	// Quotes, globs, and uppercase OR must neither fail the query nor be
	// interpreted as FTS5 operators.
	for _, q := range []string{`redis OR memcached`, `"hot" cache`, `redis*`, `NOT AND OR`} {
		_, err := SearchTurns(ctx, db, q, 10, "", "")
		require.NoError(t, err, "query %q must not fail", q)
	}

	results, err := SearchTurns(ctx, db, `redis OR memcached`, 10, "", "")
	require.NoError(t, err)
	require.Len(t, results, 1, "OR must be matched as a literal token, not an operator")
}

func TestSanitizeFTSQuery(t *testing.T) {
	assert.Equal(t, `"jwt" "auth"`, sanitizeFTSQuery("jwt auth"))
	assert.Equal(t, `"hot"`, sanitizeFTSQuery(`"hot"`))
	assert.Equal(t, `""`, sanitizeFTSQuery("   "))
	assert.Equal(t, `"a*b"`, sanitizeFTSQuery("a*b"))
}

func TestEndSessionSetsTimestampAndSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	s, err := GetSession(ctx, db, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.IsActive())

	require.NoError(t, EndSession(ctx, db, "sess-1", "shipped the cache layer"))
	s, err = GetSession(ctx, db, "sess-1")
	require.NoError(t, err)
	assert.False(t, s.IsActive())
	assert.Equal(t, "shipped the cache layer", s.Summary)
}

func TestEnsureSessionIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	id := NewSessionID()
	require.NoError(t, EnsureSession(ctx, db, id, "/proj"))
	require.NoError(t, EnsureSession(ctx, db, id, "/proj"))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&count))
	assert.Equal(t, 1, count)
}

package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
)

func TestUpsertKnowledgeCreatesThenConfirms(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	result, id1, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use SQLite because it is embedded and zero-config", 0.7)
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, result)

	result, id2, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use SQLite because embedded zero-config storage fits", 0.7)
	require.NoError(t, err)
	assert.Equal(t, UpsertConfirmed, result)
	assert.Equal(t, id1, id2)

	entries, err := ActiveKnowledgeByCategory(ctx, db, models.KnowledgeCategoryDecision, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 0.8, entries[0].Confidence, 0.001)
	assert.NotNil(t, entries[0].LastConfirmed)
}

func TestUpsertKnowledgeConfidenceCappedAtOne(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	_, _, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryConvention,
		"toolchain", "build with make lint test before every push", 0.95)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryConvention,
			"toolchain", "build with make lint test before every push", 0.95)
		require.NoError(t, err)
	}

	entries, err := ActiveKnowledgeByCategory(ctx, db, models.KnowledgeCategoryConvention, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.LessOrEqual(t, entries[0].Confidence, 1.0)
}

func TestUpsertKnowledgeContradictionSupersedes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	_, oldID, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use SQLite because embedded", 0.7)
	require.NoError(t, err)

	result, newID, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use Postgres for scalability", 0.8)
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, result)
	assert.NotEqual(t, oldID, newID)

	entries, err := ActiveKnowledgeByCategory(ctx, db, models.KnowledgeCategoryDecision, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the new entry is visible")
	assert.Equal(t, "use Postgres for scalability", entries[0].Content)

	var oldConfidence float64
	var supersededBy sql.NullInt64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT confidence, superseded_by FROM knowledge WHERE id = ?`, oldID,
	).Scan(&oldConfidence, &supersededBy))
	assert.InDelta(t, 0.35, oldConfidence, 0.001)
	require.True(t, supersededBy.Valid)
	assert.Equal(t, newID, supersededBy.Int64)
}

func TestUpsertKnowledgeSupersessionChainStaysLinear(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	contents := []string{
		"use SQLite because embedded",
		"use Postgres for scalability reasons",
		"use CockroachDB for geo-replication needs",
	}
	for _, c := range contents {
		_, _, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision, "database", c, 0.8)
		require.NoError(t, err)
	}

	entries, err := ActiveKnowledgeByCategory(ctx, db, models.KnowledgeCategoryDecision, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, contents[2], entries[0].Content)

	// Every superseded row points forward; no row points at itself or back.
	rows, err := db.QueryContext(ctx, `SELECT id, superseded_by FROM knowledge WHERE superseded_by IS NOT NULL`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id, by int64
		require.NoError(t, rows.Scan(&id, &by))
		assert.Greater(t, by, id)
	}
	require.NoError(t, rows.Err())
}

func TestKnowledgeFTSHidesSupersededEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	_, _, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use SQLite because embedded", 0.7)
	require.NoError(t, err)
	_, newID, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryDecision,
		"database", "use Postgres for scalability", 0.8)
	require.NoError(t, err)

	results, err := SearchKnowledge(ctx, db, "database", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newID, results[0].ID)
}

func TestContentsAgree(t *testing.T) {
	assert.True(t, contentsAgree(
		"use SQLite because it is embedded and simple",
		"use SQLite since embedded and simple storage works"))
	assert.False(t, contentsAgree(
		"use SQLite because embedded",
		"use Postgres for scalability"))
	assert.True(t, contentsAgree("", "anything at all"), "empty side always agrees")
	assert.True(t, contentsAgree("a an it", "totally different words"), "all-stopword side tokenizes empty and agrees")
}

func TestInsertKnowledgeClampsConfidence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, EnsureSession(ctx, db, "sess-1", "/proj"))

	_, _, err := UpsertKnowledge(ctx, db, "sess-1", models.KnowledgeCategoryPattern,
		"retries", "wrap transient writes in exponential backoff", 5.0)
	require.NoError(t, err)

	entries, err := ActiveKnowledgeByCategory(ctx, db, models.KnowledgeCategoryPattern, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1.0, entries[0].Confidence)
}

package server

import (
	stdctx "context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.MigrateDB(db, ":memory:"))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHandleRequestMemorySearch(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	require.NoError(t, store.EnsureSession(ctx, db, "sess-1", "/proj"))
	_, err := store.IndexTurn(ctx, db, &models.Turn{
		SessionID: "sess-1", Role: models.RoleUser, TurnType: models.TurnTypeRequest,
		Content: "add JWT auth to the login flow",
	})
	require.NoError(t, err)

	s := &Server{db: db}
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"memory_search","params":{"query":"JWT"}}`)
	resp := s.handleRequest(ctx, req)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	require.Contains(t, resp.Result.Content[0].Text, "JWT")
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	db := openTestDB(t)
	s := &Server{db: db}
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"bogus","params":{}}`)
	resp := s.handleRequest(stdctx.Background(), req)
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcMethodNotFound, resp.Error.Code)
}

func TestHandleRequestMalformedJSON(t *testing.T) {
	db := openTestDB(t)
	s := &Server{db: db}
	resp := s.handleRequest(stdctx.Background(), []byte(`not json`))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcParseError, resp.Error.Code)
}

func TestHandleRequestMemorySymbols(t *testing.T) {
	db := openTestDB(t)
	ctx := stdctx.Background()
	require.NoError(t, store.ReplaceFileSymbols(ctx, db, "a.go", []models.Symbol{
		{Name: "Foo", Kind: "function", StartLine: 1, EndLine: 3},
	}, nil))

	s := &Server{db: db}
	params, err := json.Marshal(memorySymbolsParams{Name: "Foo"})
	require.NoError(t, err)
	req, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: "memory_symbols", Params: params})
	require.NoError(t, err)

	resp := s.handleRequest(ctx, req)
	require.Nil(t, resp.Error)
	require.Contains(t, resp.Result.Content[0].Text, "Foo")
}

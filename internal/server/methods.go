package server

import (
	"context"
	"encoding/json"

	"github.com/dullfig/claude-rlm/internal/store"
)

// rpcRequest is a JSON-RPC 2.0 request frame.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response frame. Results are always a single
// text content block, matching the tool-call convention the protocol uses
// for method results.
type rpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  *toolResult   `json:"result,omitempty"`
	Error   *rpcError     `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolResult struct {
	Content []toolContent `json:"content"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	rpcParseError     = -32700
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
)

func textResult(text string) *toolResult {
	return &toolResult{Content: []toolContent{{Type: "text", Text: text}}}
}

// handleRequest decodes one JSON-RPC frame and dispatches it to the named
// memory_* method. A malformed frame or unknown method yields a JSON-RPC
// error response rather than a dropped connection.
func (s *Server) handleRequest(ctx context.Context, line []byte) *rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return &rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: "parse error: " + err.Error()}}
	}

	resp := &rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "memory_search":
		resp.Result, resp.Error = s.memorySearch(ctx, req.Params)
	case "memory_decisions":
		resp.Result, resp.Error = s.memoryDecisions(ctx, req.Params)
	case "memory_files":
		resp.Result, resp.Error = s.memoryFiles(ctx, req.Params)
	case "memory_symbols":
		resp.Result, resp.Error = s.memorySymbols(ctx, req.Params)
	default:
		resp.Error = &rpcError{Code: rpcMethodNotFound, Message: "unknown method " + req.Method}
	}
	return resp
}

type memorySearchParams struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
	SessionID string `json:"session_id"`
	TurnType  string `json:"turn_type"`
}

func (s *Server) memorySearch(ctx context.Context, raw json.RawMessage) (*toolResult, *rpcError) {
	var p memorySearchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
	}
	limit := defaultLimit(p.Limit)
	results, err := store.SearchTurns(ctx, s.db, p.Query, limit, p.SessionID, p.TurnType)
	if err != nil {
		// §7 RetrievalError: return an empty result set with a text message,
		// never propagate the failure to the caller.
		return textResult("retrieval error: " + err.Error()), nil
	}
	return jsonTextResult(results)
}

type memoryDecisionsParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) memoryDecisions(ctx context.Context, raw json.RawMessage) (*toolResult, *rpcError) {
	var p memoryDecisionsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
	}
	limit := defaultLimit(p.Limit)
	knowledge, turns, err := store.MemoryDecisions(ctx, s.db, p.Query, limit)
	if err != nil {
		return textResult("retrieval error: " + err.Error()), nil
	}
	return jsonTextResult(struct {
		Knowledge any `json:"knowledge"`
		Turns     any `json:"turns"`
	}{Knowledge: knowledge, Turns: turns})
}

type memoryFilesParams struct {
	FilePath string `json:"file_path"`
	Limit    int    `json:"limit"`
}

func (s *Server) memoryFiles(ctx context.Context, raw json.RawMessage) (*toolResult, *rpcError) {
	var p memoryFilesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
	}
	limit := defaultLimit(p.Limit)
	results, err := store.MemoryFiles(ctx, s.db, p.FilePath, limit)
	if err != nil {
		return textResult("retrieval error: " + err.Error()), nil
	}
	return jsonTextResult(results)
}

type memorySymbolsParams struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Server) memorySymbols(ctx context.Context, raw json.RawMessage) (*toolResult, *rpcError) {
	var p memorySymbolsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
	}
	results, err := store.MemorySymbols(ctx, s.db, p.Name, p.Kind)
	if err != nil {
		return textResult("retrieval error: " + err.Error()), nil
	}
	return jsonTextResult(results)
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}

func jsonTextResult(v any) (*toolResult, *rpcError) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &rpcError{Code: rpcInternalError, Message: err.Error()}
	}
	return textResult(string(b)), nil
}

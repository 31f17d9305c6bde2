// Package distill turns a session's turns into durable knowledge entries,
// using an LLM summarizer when one is configured and falling back to a
// fixed heuristic lexicon otherwise.
package distill

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

// Result reports how many facts were produced and how the knowledge upsert
// protocol classified each one.
type Result struct {
	Mode      string // "llm" or "heuristic"
	Created   int
	Confirmed int
}

// DistillSession extracts facts from sessionID's turns and upserts each
// through the store's knowledge protocol. provider may be nil, in which
// case heuristic mode runs directly; when provider is set, LLM mode is
// attempted first and heuristic mode is the fallback on any failure.
func DistillSession(ctx context.Context, db *sql.DB, provider summarizer.Provider, sessionID string) (Result, error) {
	turns, err := store.SessionTurns(ctx, db, sessionID)
	if err != nil {
		return Result{}, err
	}
	if len(turns) == 0 {
		return Result{}, nil
	}

	var facts []fact
	mode := "heuristic"
	if provider != nil {
		if llmFacts, llmErr := llmExtract(ctx, provider, turns); llmErr == nil {
			// A well-formed empty result means the LLM judged nothing
			// durable happened — that's a successful LLM pass, not a
			// failure, so it must NOT fall through to heuristic mode
			// (which could fabricate a spurious entry from an incidental
			// keyword match the LLM correctly saw no reason to report).
			facts = llmFacts
			mode = "llm"
		} else {
			slog.Default().Warn("knowledge distillation llm extraction failed, falling back to heuristic", "session_id", sessionID, "error", llmErr)
		}
	}
	if mode == "heuristic" {
		facts = heuristicExtract(turns)
	}

	result := Result{Mode: mode}
	for _, f := range facts {
		upsertResult, _, err := store.UpsertKnowledge(ctx, db, sessionID, f.Category, f.Subject, f.Content, f.Confidence)
		if err != nil {
			slog.Default().Warn("knowledge upsert failed", "subject", f.Subject, "category", f.Category, "error", err)
			continue
		}
		if upsertResult == store.UpsertCreated {
			result.Created++
		} else {
			result.Confirmed++
		}
	}

	return result, nil
}

package hooks

import (
	"log/slog"

	"github.com/dullfig/claude-rlm/internal/context"
	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/worker"
)

// SessionStart ensures the session row exists, runs whichever catch-up
// engine applies, indexes the project if the symbol table is empty, builds
// the startup or compaction context blob depending on Source, and emits it
// as additionalContext.
func SessionStart(in Input) {
	Guard("SessionStart", func() { sessionStart(in) })
}

func sessionStart(in Input) {
	ctx := background()
	db, projectDir, err := openStore(in)
	if err != nil {
		slog.Default().Warn("session start: storage unavailable", "error", err)
		return
	}
	defer db.Close()

	if in.SessionID == "" {
		return
	}
	if err := store.EnsureSession(ctx, db, in.SessionID, projectDir); err != nil {
		slog.Default().Warn("session start: ensure session failed", "error", err)
		return
	}

	// Catch-up and initial indexing belong to a genuine session start only;
	// a post-compaction restart skips straight to the context rebuild.
	if in.Source != "compact" {
		worker.RunVCSOrHashCatchup(ctx, db, in.SessionID, projectDir)

		if empty, err := store.SymbolTableEmpty(ctx, db); err == nil && empty {
			if _, err := index.IndexProject(ctx, db, projectDir); err != nil {
				slog.Default().Warn("session start: initial index failed", "error", err)
			}
		}
	}

	var blob string
	var buildErr error
	if in.Source == "compact" {
		blob, buildErr = context.BuildCompactContext(ctx, db, projectDir, in.SessionID)
	} else {
		blob, buildErr = context.BuildStartupContext(ctx, db, projectDir)
	}
	if buildErr != nil {
		slog.Default().Warn("session start: context build failed", "error", buildErr)
		return
	}

	WriteOutput(&Output{HookSpecificOutput: &SpecificOutput{
		HookEventName:     "SessionStart",
		AdditionalContext: blob,
	}})
}

// Package hooks implements the short-lived per-event handlers the host
// spawns around a session: each reads one JSON record from standard input,
// updates the store, optionally writes a JSON response to standard output,
// and exits 0 unconditionally — a failed hook must never block the host.
package hooks

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/dullfig/claude-rlm/internal/app"
)

// maxStdinBytes caps the hook payload read, matching the teacher's bound:
// these are small JSON objects and this is generous headroom.
const maxStdinBytes = 1 << 20

// Input is the JSON record the host writes to a hook's standard input.
// Raw preserves the full decoded object so forward-compatible fields the
// typed struct doesn't name are never silently lost.
type Input struct {
	CWD            string          `json:"cwd"`
	SessionID      string          `json:"session_id"`
	HookEventName  string          `json:"hook_event_name"`
	Prompt         string          `json:"prompt"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input"`
	ToolResponse   json.RawMessage `json:"tool_response"`
	Source         string          `json:"source"` // SessionStart only: "startup" | "compact"
	TranscriptPath string          `json:"transcript_path"`
	Raw            map[string]any  `json:"-"`
}

// ReadStdin decodes stdin into a typed Input, then again into an open map
// so unknown fields survive under Raw. A malformed or empty payload yields
// a zero-value Input rather than an error — hook handlers always proceed
// and always exit 0.
func ReadStdin() Input {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes))
	if err != nil {
		return Input{}
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Default().Warn("hook stdin decode failed", "error", err, "bytes", len(data))
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	in.Raw = raw
	return in
}

// Output is the optional JSON object a hook writes to standard output.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries the per-event response fields from §6: SessionStart
// sets AdditionalContext; PreToolUse sets PermissionDecision/UpdatedInput.
type SpecificOutput struct {
	HookEventName      string         `json:"hookEventName"`
	AdditionalContext  string         `json:"additionalContext,omitempty"`
	PermissionDecision string         `json:"permissionDecision,omitempty"`
	UpdatedInput       map[string]any `json:"updatedInput,omitempty"`
}

// WriteOutput emits out as the hook's stdout JSON response, if non-nil.
func WriteOutput(out *Output) {
	if out == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(out); err != nil {
		slog.Default().Warn("hook stdout encode failed", "error", err)
	}
}

// Guard checks the disable-flag file, then recovers a panic from the hook
// body and logs it instead of letting it propagate — the hook-level panic
// policy from §9: a failed hook still exits 0 so the host proceeds.
func Guard(eventName string, fn func()) {
	if app.HooksDisabled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("hook panicked", "event", eventName, "recover", r)
		}
	}()
	fn()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

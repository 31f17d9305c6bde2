package commands

import (
	"github.com/spf13/cobra"

	"github.com/dullfig/claude-rlm/internal/hooks"
)

// NewHookCmd is the parent for the per-event hook handler subcommands the
// host invokes directly. Hidden from `rlm --help` since agents never type
// these themselves.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Hook handlers invoked by the assistant host",
		Args:   cobra.NoArgs,
		Hidden: true,
	}

	for _, sub := range []*cobra.Command{
		newHookSubcommand("session-start", "SessionStart", hooks.SessionStart),
		newHookSubcommand("user-prompt-submit", "UserPromptSubmit", hooks.UserPromptSubmit),
		newHookSubcommand("post-tool-edit", "PostToolUse:Edit", hooks.PostToolEdit),
		newHookSubcommand("post-tool-read", "PostToolUse:Read", hooks.PostToolRead),
		newHookSubcommand("post-tool-bash", "PostToolUse:Bash", hooks.PostToolBash),
		newHookSubcommand("pre-compact", "PreCompact", hooks.PreCompact),
		newHookSubcommand("pre-tool-explore", "PreToolUse:Explore", hooks.PreToolExplore),
		newHookSubcommand("session-end", "SessionEnd", hooks.SessionEnd),
	} {
		cmd.AddCommand(sub)
	}

	return cmd
}

// newHookSubcommand wires one event kind to its handler. Handlers never
// return an error and always exit 0 — that is the hook-level panic/failure
// policy from §9, enforced inside hooks.Guard.
func newHookSubcommand(use, label string, handler func(hooks.Input)) *cobra.Command {
	return &cobra.Command{
		Use:    use,
		Short:  label + " handler",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler(hooks.ReadStdin())
			return nil
		},
	}
}

package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dullfig/claude-rlm/internal/app"
	"github.com/dullfig/claude-rlm/internal/server"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

// NewServerCmd starts the long-lived query server for the current project:
// drains stale shutdown tasks, recovers stuck ones, indexes if empty, starts
// the file watcher and task poller, then serves JSON-RPC requests on
// standard streams until stdin closes or a shutdown task is observed.
func NewServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the long-lived memory query server for this project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return cmdErr(err)
			}

			cfg, err := app.LoadConfig(projectDir)
			if err != nil {
				return cmdErr(err)
			}
			provider := summarizer.New(cfg.LLM)

			srv, err := server.New(projectDir, provider)
			if err != nil {
				return cmdErr(err)
			}
			defer srv.Close()

			return srv.Run(cmd.Context())
		},
	}
}

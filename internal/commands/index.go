package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/output"
	"github.com/dullfig/claude-rlm/internal/store"
)

// NewIndexCmd runs a full symbol reindex of the current project directory,
// for manual use outside the hook/watcher/poller flows (first bootstrap,
// CI, or recovering from a corrupted symbol table).
func NewIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "(Re)index the current project's symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return cmdErr(err)
			}

			db, err := store.InitDB(projectDir)
			if err != nil {
				return cmdErr(err)
			}
			defer db.Close()

			report, err := index.IndexProject(cmd.Context(), db, projectDir)
			if err != nil {
				return cmdErr(err)
			}
			return output.PrintSuccess(report)
		},
	}
}

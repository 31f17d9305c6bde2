// Package commands assembles the rlm CLI surface: the hook handlers the
// host spawns per event, the long-lived query server, and a few operator
// commands (index, doctor) for manual use outside those flows.
package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dullfig/claude-rlm/internal/output"
)

// Execute runs the rlm CLI.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "rlm",
		Short:         "Per-project memory store for an interactive coding assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				// GetDBPath (internal/app) consults this override before
				// falling back to <project>/.claude/rlm.db.
				_ = os.Setenv("RLM_DB_PATH", dbPath)
			}
			return nil
		},
	}

	root.PersistentFlags().String("db-path", "", "Override database path")
	root.Flags().BoolP("version", "v", false, "version for rlm")

	root.AddCommand(NewHookCmd())
	root.AddCommand(NewServerCmd())
	root.AddCommand(NewIndexCmd())
	root.AddCommand(NewDoctorCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Default().Error("command failed", "error", err.Error())
		}
	}
	return err
}

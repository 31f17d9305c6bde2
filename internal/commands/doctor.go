package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dullfig/claude-rlm/internal/app"
	"github.com/dullfig/claude-rlm/internal/output"
	"github.com/dullfig/claude-rlm/internal/store"
)

// NewDoctorCmd checks that the project store can be opened, migrated, and
// queried — a quick diagnostic for "why isn't memory working" reports.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store connectivity for the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return cmdErr(err)
			}

			dbPath, err := app.GetDBPath(projectDir)
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				DBPath    string            `json:"db_path"`
				DBOK      bool              `json:"db_ok"`
				DBErr     string            `json:"db_error,omitempty"`
				QueryOK   bool              `json:"query_ok"`
				QueryErr  string            `json:"query_error,omitempty"`
				Overrides map[string]string `json:"overrides,omitempty"`
			}
			out := resp{DBPath: dbPath, Overrides: changedFlags(cmd)}

			db, err := store.InitDBWithPath(dbPath)
			if err != nil {
				out.DBErr = err.Error()
				return output.PrintSuccess(out)
			}
			out.DBOK = true
			defer db.Close()

			var one int
			if err := db.QueryRowContext(cmd.Context(), "SELECT 1").Scan(&one); err != nil {
				out.QueryErr = err.Error()
			} else {
				out.QueryOK = true
			}
			return output.PrintSuccess(out)
		},
	}
}

// changedFlags collects the flags the operator set on the command line, so a
// doctor report shows whether an override (not the default layout) is in play.
func changedFlags(cmd *cobra.Command) map[string]string {
	var out map[string]string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if out == nil {
			out = make(map[string]string)
		}
		out[f.Name] = f.Value.String()
	})
	cmd.InheritedFlags().Visit(func(f *pflag.Flag) {
		if out == nil {
			out = make(map[string]string)
		}
		out[f.Name] = f.Value.String()
	})
	return out
}

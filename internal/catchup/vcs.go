// Package catchup implements the two session-start catch-up engines: a VCS
// variant that diffs against the last observed commit, and a content-hash
// variant for projects with no version control. Both are no-ops on first
// run (they seed state and return) and both are best-effort: any failure
// falls through to a no-op rather than blocking session start.
package catchup

import (
	"bytes"
	"context"
	"database/sql"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// HasVCS reports whether root is (or is inside) a git repository.
func HasVCS(root string) bool {
	cmd := exec.Command("git", "-C", root, "rev-parse", "--is-inside-work-tree")
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func gitOutput(root string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func headCommit(root string) (string, error) {
	out, err := gitOutput(root, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// VCSCatchupResult reports what the VCS catch-up engine found, for callers
// that want to log or test beyond the written turn.
type VCSCatchupResult struct {
	Ran          bool
	ChangedFiles []string
	Summary      string
}

// RunVCSCatchup compares the stored last-observed commit for projectDir to
// the repository's current HEAD. On first run (no stored pointer) it seeds
// the pointer and returns without writing a turn. When HEAD has advanced,
// it collects the commit log, changed file names, and short-stat between
// the two revisions, writes one git_catchup turn summarizing them, enqueues
// one reindex_stale task per changed file (the file name as payload), and
// advances the stored pointer. Every git
// sub-invocation is best-effort: if any step fails, the engine falls
// through to a no-op rather than surfacing an error to the caller.
func RunVCSCatchup(ctx context.Context, db *sql.DB, sessionID, projectDir string) VCSCatchupResult {
	head, err := headCommit(projectDir)
	if err != nil {
		return VCSCatchupResult{}
	}

	last, err := store.VCSLastCommit(ctx, db, projectDir)
	if err != nil {
		return VCSCatchupResult{}
	}
	if last == "" {
		_ = store.SetVCSLastCommit(ctx, db, projectDir, head)
		return VCSCatchupResult{}
	}
	if last == head {
		return VCSCatchupResult{}
	}

	revRange := last + ".." + head
	log, err := gitOutput(projectDir, "log", "--oneline", revRange)
	if err != nil {
		_ = store.SetVCSLastCommit(ctx, db, projectDir, head)
		return VCSCatchupResult{}
	}

	nameOnly, err := gitOutput(projectDir, "diff", "--name-only", revRange)
	if err != nil {
		_ = store.SetVCSLastCommit(ctx, db, projectDir, head)
		return VCSCatchupResult{}
	}
	changed := splitNonEmptyLines(nameOnly)

	shortStat, _ := gitOutput(projectDir, "diff", "--shortstat", revRange)

	var b strings.Builder
	b.WriteString("Changes since last session (")
	b.WriteString(strconv.Itoa(len(changed)))
	b.WriteString(" files):\n\n")
	b.WriteString(strings.TrimSpace(log))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(shortStat))

	summary := b.String()

	turn := &models.Turn{
		SessionID: sessionID,
		Role:      models.RoleSystem,
		TurnType:  models.TurnTypeGitCatchup,
		Content:   summary,
	}
	for _, f := range changed {
		turn.Files = append(turn.Files, models.TurnFile{FilePath: f, Action: models.FileActionGitChange})
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		return VCSCatchupResult{}
	}

	for _, f := range changed {
		_, _ = store.EnqueueTask(ctx, db, models.TaskTypeReindexStale, projectDir, f)
	}

	_ = store.SetVCSLastCommit(ctx, db, projectDir, head)

	return VCSCatchupResult{Ran: true, ChangedFiles: changed, Summary: summary}
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

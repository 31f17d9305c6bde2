package catchup

import (
	"context"
	"database/sql"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
)

// HashCatchupResult reports what the hash catch-up engine found.
type HashCatchupResult struct {
	Ran     bool
	Added   []string
	Changed []string
	Deleted []string
}

// walkHashable reuses the code indexer's ignore-aware walk (same skip-list
// and .gitignore handling) and hashes each file's content. Hashing is pure
// read+digest work with no store access, so it fans out across cores;
// unreadable files are skipped, not fatal.
func walkHashable(root string) (map[string]uint64, error) {
	paths, err := index.WalkFiles(root)
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(paths))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, p := range paths {
		p := p
		g.Go(func() error {
			content, readErr := os.ReadFile(p)
			if readErr != nil {
				return nil
			}
			h := xxhash.Sum64(content)
			mu.Lock()
			out[p] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// RunHashCatchup walks root (the same ignore rules as the code indexer, via
// symbols.SupportsExt), computes a 64-bit content digest per file, and
// diffs against the stored hash snapshot for projectDir. On first run
// (empty stored snapshot) it seeds every hash and reports zero changes. On
// subsequent runs it reports added/changed/deleted files, writes one
// file_catchup turn, reindexes the changed+added set, purges symbols for
// deleted files, then replaces the stored snapshot with the fresh one.
func RunHashCatchup(ctx context.Context, db *sql.DB, sessionID, projectDir string) HashCatchupResult {
	fresh, err := walkHashable(projectDir)
	if err != nil {
		return HashCatchupResult{}
	}

	stored, err := store.FileHashes(ctx, db, projectDir)
	if err != nil {
		return HashCatchupResult{}
	}

	firstRun := len(stored) == 0
	var added, changed, deleted []string

	for path, hash := range fresh {
		old, ok := stored[path]
		if !ok {
			added = append(added, path)
		} else if old != hash {
			changed = append(changed, path)
		}
	}
	for path := range stored {
		if _, ok := fresh[path]; !ok {
			deleted = append(deleted, path)
		}
	}

	if err := store.ReplaceFileHashes(ctx, db, projectDir, fresh); err != nil {
		return HashCatchupResult{}
	}

	if firstRun || (len(added) == 0 && len(changed) == 0 && len(deleted) == 0) {
		return HashCatchupResult{}
	}

	turn := &models.Turn{
		SessionID: sessionID,
		Role:      models.RoleSystem,
		TurnType:  models.TurnTypeFileCatchup,
		Content: "Filesystem changes since last session: " +
			strconv.Itoa(len(added)) + " added, " +
			strconv.Itoa(len(changed)) + " changed, " +
			strconv.Itoa(len(deleted)) + " deleted",
	}
	for _, f := range added {
		turn.Files = append(turn.Files, models.TurnFile{FilePath: f, Action: models.FileActionFileAdd})
	}
	for _, f := range changed {
		turn.Files = append(turn.Files, models.TurnFile{FilePath: f, Action: models.FileActionFileChange})
	}
	for _, f := range deleted {
		turn.Files = append(turn.Files, models.TurnFile{FilePath: f, Action: models.FileActionFileDelete})
	}
	if _, err := store.IndexTurn(ctx, db, turn); err != nil {
		return HashCatchupResult{}
	}

	for _, f := range append(append([]string{}, added...), changed...) {
		_ = index.IndexFile(ctx, db, f)
	}
	for _, f := range deleted {
		_ = store.DeleteFileSymbols(ctx, db, f)
	}

	return HashCatchupResult{Ran: true, Added: added, Changed: changed, Deleted: deleted}
}

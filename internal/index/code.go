// Package index walks a project tree, extracts symbols via the symbol
// extractor capability, and maintains the store's symbol table and
// per-file last-indexed timestamps.
package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/symbols"
)

// skipDirs is the fixed skip-list of vendored/cache directories applied in
// addition to whatever .gitignore rules the project declares.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".mypy_cache":  true,
	".pytest_cache": true,
	".idea":        true,
	".vscode":      true,
	".claude":      true,
}

// loadIgnore reads <root>/.gitignore if present; a missing file is not an
// error, it just means nothing beyond skipDirs is excluded.
func loadIgnore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	ign, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ign
}

// WalkFiles returns every regular file under root whose extension the
// symbol extractor recognizes, skipping skipDirs and anything the
// project's .gitignore matches. Exported so the hash catch-up engine walks
// the identical file set as the code indexer.
func WalkFiles(root string) ([]string, error) {
	return walkFiles(root)
}

func walkFiles(root string) ([]string, error) {
	ign := loadIgnore(root)
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk: skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if ign != nil && ign.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ign != nil && ign.MatchesPath(rel) {
			return nil
		}
		if symbols.SupportsExt(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// IndexFile extracts and replaces the symbol set for a single file, in one
// store transaction. A parse failure is reported as models.IndexErr and
// the caller should skip the file and continue; it never aborts a batch.
func IndexFile(ctx context.Context, db *sql.DB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &models.IndexErr{FilePath: path, Err: err}
	}

	result, err := symbols.Extract(ctx, path, content)
	if err != nil {
		return &models.IndexErr{FilePath: path, Err: err}
	}

	syms := make([]models.Symbol, len(result.Symbols))
	for i, s := range result.Symbols {
		syms[i] = models.Symbol{
			Name:       s.Name,
			Kind:       s.Kind,
			StartLine:  s.StartLine,
			EndLine:    s.EndLine,
			ParentName: s.ParentName,
			Signature:  s.Signature,
			DocComment: s.DocComment,
		}
	}
	refs := make([]models.SymbolRef, len(result.Refs))
	for i, r := range result.Refs {
		refs[i] = models.SymbolRef{FromSymbolName: r.FromSymbolName, ToName: r.ToName, Line: r.Line}
	}

	if err := store.ReplaceFileSymbols(ctx, db, path, syms, refs); err != nil {
		return &models.IndexErr{FilePath: path, Err: err}
	}
	return nil
}

// Report summarizes an IndexProject run: how many files were reindexed and
// which ones failed to parse (and were skipped, not aborted).
type Report struct {
	Indexed int
	Failed  []string
}

// IndexProject walks root and (re)indexes every recognized source file,
// one transaction per file so a single parse failure never loses progress
// already made on other files.
func IndexProject(ctx context.Context, db *sql.DB, root string) (Report, error) {
	var report Report
	files, err := walkFiles(root)
	if err != nil {
		return report, err
	}
	for _, f := range files {
		if err := IndexFile(ctx, db, f); err != nil {
			report.Failed = append(report.Failed, f)
			continue
		}
		report.Indexed++
	}
	return report, nil
}

// StaleFile is one file the stale-detection pass decided needs attention:
// either reindexed (still on disk) or purged (deleted).
type StaleFile struct {
	Path    string
	Deleted bool
}

// DetectStale never mutates state. A file is stale if its on-disk mtime is
// newer than its last-indexed timestamp, or if it has a recognized
// extension but no symbols recorded yet. Files recorded as indexed but
// missing from disk are reported as stale+deleted so the caller can purge
// their symbols.
func DetectStale(ctx context.Context, db *sql.DB, root string) ([]StaleFile, error) {
	indexed, err := store.IndexedFiles(ctx, db)
	if err != nil {
		return nil, err
	}

	onDisk, err := walkFiles(root)
	if err != nil {
		return nil, err
	}
	onDiskSet := make(map[string]bool, len(onDisk))

	var stale []StaleFile
	for _, path := range onDisk {
		onDiskSet[path] = true
		if !indexed[path] {
			stale = append(stale, StaleFile{Path: path})
			continue
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		lastIndexed, err := fileLastIndexed(ctx, db, path)
		if err != nil {
			continue
		}
		if info.ModTime().After(lastIndexed) {
			stale = append(stale, StaleFile{Path: path})
		}
	}

	for path := range indexed {
		if !onDiskSet[path] && strings.HasPrefix(path, root) {
			stale = append(stale, StaleFile{Path: path, Deleted: true})
		}
	}

	return stale, nil
}

func fileLastIndexed(ctx context.Context, db *sql.DB, path string) (time.Time, error) {
	syms, err := store.FileSymbols(ctx, db, path)
	if err != nil || len(syms) == 0 {
		return time.Time{}, err
	}
	latest := syms[0].IndexedAt
	for _, s := range syms[1:] {
		if s.IndexedAt.After(latest) {
			latest = s.IndexedAt
		}
	}
	return latest, nil
}

// ReindexStale reindexes every stale file and purges symbols for deleted
// ones, used both by the initial-index startup path and the
// reindex_stale background task.
func ReindexStale(ctx context.Context, db *sql.DB, root string) (Report, error) {
	var report Report
	stale, err := DetectStale(ctx, db, root)
	if err != nil {
		return report, err
	}
	for _, f := range stale {
		if f.Deleted {
			if err := store.DeleteFileSymbols(ctx, db, f.Path); err != nil {
				report.Failed = append(report.Failed, f.Path)
			}
			continue
		}
		if err := IndexFile(ctx, db, f.Path); err != nil {
			report.Failed = append(report.Failed, f.Path)
			continue
		}
		report.Indexed++
	}
	return report, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/dullfig/claude-rlm/internal/models"
)

// ReplaceFileSymbols deletes every symbol (and symbol_refs referencing them)
// recorded for filePath, then inserts the freshly extracted set, in one
// transaction. Symbol ids are not stable across reindexes.
func ReplaceFileSymbols(ctx context.Context, db *sql.DB, filePath string, symbols []models.Symbol, refs []models.SymbolRef) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		oldIDs, err := queryStringColumn(tx, `SELECT id FROM symbols WHERE file_path = ?`, filePath)
		if err != nil {
			return err
		}
		for _, idStr := range oldIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_refs WHERE from_symbol_id = ?`, idStr); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, filePath); err != nil {
			return wrapIntegrity("replace_file_symbols", err)
		}

		nameToID := make(map[string]int64, len(symbols))
		for i := range symbols {
			s := &symbols[i]
			res, err := tx.ExecContext(ctx, `
				INSERT INTO symbols (file_path, name, kind, start_line, end_line, parent_name, signature, doc_comment)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, filePath, s.Name, string(s.Kind), s.StartLine, s.EndLine,
				nullableString(s.ParentName), nullableString(s.Signature), nullableString(s.DocComment))
			if err != nil {
				return wrapIntegrity("insert_symbol", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			s.ID = id
			nameToID[s.Name] = id
		}

		for _, r := range refs {
			fromID, ok := nameToID[r.FromSymbolName]
			if !ok {
				continue
			}
			var toID any
			if id, ok := nameToID[r.ToName]; ok {
				toID = id
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO symbol_refs (from_symbol_id, to_symbol_id, to_name, file_path, line)
				VALUES (?, ?, ?, ?, ?)
			`, fromID, toID, r.ToName, filePath, r.Line); err != nil {
				return wrapIntegrity("insert_symbol_ref", err)
			}
		}
		return nil
	})
}

// DeleteFileSymbols purges all symbols (and their refs) recorded for a
// removed file.
func DeleteFileSymbols(ctx context.Context, db *sql.DB, filePath string) error {
	return ReplaceFileSymbols(ctx, db, filePath, nil, nil)
}

// FileSymbols returns every symbol recorded for a file, ordered by
// position.
func FileSymbols(ctx context.Context, db *sql.DB, filePath string) ([]models.Symbol, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, file_path, name, kind, start_line, end_line,
		       COALESCE(parent_name, ''), COALESCE(signature, ''), COALESCE(doc_comment, ''), last_indexed
		FROM symbols WHERE file_path = ? ORDER BY start_line
	`, filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Symbol
	for rows.Next() {
		var s models.Symbol
		var kind string
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Name, &kind, &s.StartLine, &s.EndLine,
			&s.ParentName, &s.Signature, &s.DocComment, &s.IndexedAt); err != nil {
			return nil, err
		}
		s.Kind = models.SymbolKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// IndexedFiles returns every distinct file path with at least one recorded
// symbol, used by stale detection to find files with no symbols.
func IndexedFiles(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	paths, err := queryStringColumnCtx(ctx, db, `SELECT DISTINCT file_path FROM symbols`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p] = true
	}
	return out, nil
}

// SymbolTableEmpty reports whether no symbols have ever been recorded,
// used at server startup to decide whether an initial full index is needed.
func SymbolTableEmpty(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols LIMIT 1`).Scan(&count)
	return count == 0, err
}

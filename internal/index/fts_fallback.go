//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the notes table.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _, _, _ string) error { return nil }

func ftsDeleteProject(_ *sql.Tx, _ string) error { return nil }

// SearchNotes matches note text by substring. Builds without the sqlite_fts5
// tag use this in place of the FTS5 index.
func (db *DB) SearchNotes(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT project_id, uri, note_id, substr(content, 1, 200)
		FROM notes
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY project_id, uri
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ProjectID, &r.URI, &r.NoteID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

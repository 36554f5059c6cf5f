package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// SearchResult represents one note matching a search.
type SearchResult struct {
	ProjectID string `json:"projectId"`
	URI       string `json:"uri"`
	NoteID    string `json:"noteId"`
	Snippet   string `json:"snippet"`
}

// UpsertProject inserts or replaces a project row, keyed by id.
func (db *DB) UpsertProject(p models.ProjectSummary) error {
	_, err := db.conn.Exec(`
		INSERT INTO projects (id, name, path, last_accessed, favorite)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name          = excluded.name,
			path          = excluded.path,
			last_accessed = excluded.last_accessed,
			favorite      = excluded.favorite
	`, p.ID, p.Name, p.Path, p.LastAccessed, p.Favorite)
	if err != nil {
		return fmt.Errorf("index: upsert project: %w", err)
	}
	return nil
}

// GetProject returns the project with the given id.
func (db *DB) GetProject(id string) (*models.ProjectSummary, error) {
	return db.scanProject(db.conn.QueryRow(
		`SELECT id, name, path, last_accessed, favorite FROM projects WHERE id = ?`, id))
}

// GetProjectByPath returns the project registered at path.
func (db *DB) GetProjectByPath(path string) (*models.ProjectSummary, error) {
	return db.scanProject(db.conn.QueryRow(
		`SELECT id, name, path, last_accessed, favorite FROM projects WHERE path = ?`, path))
}

func (db *DB) scanProject(row *sql.Row) (*models.ProjectSummary, error) {
	var p models.ProjectSummary
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &p.LastAccessed, &p.Favorite); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("index: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns favorites first, then the most recently accessed.
func (db *DB) ListProjects() ([]models.ProjectSummary, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, path, last_accessed, favorite
		FROM projects
		ORDER BY favorite DESC, last_accessed DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.ProjectSummary
	for rows.Next() {
		var p models.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Path, &p.LastAccessed, &p.Favorite); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject forgets a project together with its notes. Files on disk
// are not touched.
func (db *DB) DeleteProject(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDeleteProject(tx, id); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM notes WHERE project_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM asset_trees WHERE project_id = ?`, id)
	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// SaveAssetTree stores the whole tree for a project and refreshes the
// searchable note rows within a transaction.
func (db *DB) SaveAssetTree(projectID string, tree *models.AssetNode) error {
	if tree == nil {
		return fmt.Errorf("index: asset tree is required: %w", apperr.ErrInvalid)
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("index: encode tree: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO asset_trees (project_id, tree, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id) DO UPDATE SET
			tree       = excluded.tree,
			updated_at = excluded.updated_at
	`, projectID, string(data))
	if err != nil {
		return fmt.Errorf("index: save tree: %w", err)
	}

	// Replace notes: delete old then bulk insert.
	if err := ftsDeleteProject(tx, projectID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO notes (project_id, note_id, uri, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer stmt.Close()

	var insert func(n *models.AssetNode) error
	insert = func(n *models.AssetNode) error {
		for _, note := range n.Notes {
			if _, err := stmt.Exec(projectID, note.ID, n.URI, note.Content); err != nil {
				return fmt.Errorf("index: insert note: %w", err)
			}
			if err := ftsInsert(tx, projectID, note.ID, n.URI, note.Content); err != nil {
				return err
			}
		}
		for i := range n.Children {
			if err := insert(&n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(tree); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadAssetTree returns the stored tree for a project, or nil when none has
// been saved yet.
func (db *DB) LoadAssetTree(projectID string) (*models.AssetNode, error) {
	var data string
	err := db.conn.QueryRow(`SELECT tree FROM asset_trees WHERE project_id = ?`, projectID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: load tree: %w", err)
	}
	var tree models.AssetNode
	if err := json.Unmarshal([]byte(data), &tree); err != nil {
		return nil, fmt.Errorf("index: decode tree: %w", err)
	}
	return &tree, nil
}

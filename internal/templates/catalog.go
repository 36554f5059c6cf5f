package templates

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Entry is one discoverable template version.
type Entry struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Version     string               `json:"version"`
	Contents    []models.ContentNode `json:"contents"`
	Dir         string               `json:"-"`
}

// List scans root for registered templates whose current version exists on
// disk. Unregistered directories, templates missing from disk and templates
// missing their current version are left out without error.
func List(root string, reg *Registry) ([]Entry, error) {
	if reg == nil {
		return nil, fmt.Errorf("templates: registry is required")
	}
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("templates: read root %s: %w", root, err)
	}
	skip := reg.excluded()

	var out []Entry
	for _, e := range dirEntries {
		def, ok := reg.Lookup(e.Name())
		if !ok {
			continue
		}
		idDir := filepath.Join(root, e.Name())
		if !storage.IsDir(idDir) {
			continue
		}
		versionDir := filepath.Join(idDir, def.Version)
		found, err := hasVersion(idDir, def.Version)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		contents, err := scanContents(versionDir, skip)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Version:     def.Version,
			Contents:    contents,
			Dir:         versionDir,
		})
	}
	return out, nil
}

// Find returns the entry with the given id.
func Find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func hasVersion(idDir, version string) (bool, error) {
	versions, err := os.ReadDir(idDir)
	if err != nil {
		return false, fmt.Errorf("templates: read versions of %s: %w", idDir, err)
	}
	for _, v := range versions {
		if v.Name() == version && storage.IsDir(filepath.Join(idDir, v.Name())) {
			return true, nil
		}
	}
	return false, nil
}

func scanContents(dir string, skip map[string]struct{}) ([]models.ContentNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", dir, err)
	}
	var out []models.ContentNode
	for _, e := range entries {
		if _, ok := skip[e.Name()]; ok {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if !storage.IsDir(p) {
			out = append(out, models.ContentNode{Name: e.Name(), Type: models.NodeFile})
			continue
		}
		children, err := scanContents(p, skip)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ContentNode{
			Name:     e.Name(),
			Type:     models.NodeDirectory,
			Children: children,
		})
	}
	return out, nil
}

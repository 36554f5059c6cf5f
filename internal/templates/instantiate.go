package templates

import (
	"fmt"
	"path/filepath"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Instantiate copies the contents of template id at version into targetDir.
// entries is a catalog previously returned by List. Directories are created
// before anything is written into them; directories that already exist are
// reused. Files already copied are left in place if a later step fails.
func Instantiate(targetDir string, entries []Entry, id, version string) error {
	if targetDir == "" {
		return fmt.Errorf("templates: target directory is required: %w", apperr.ErrInvalid)
	}
	if !storage.Accessible(targetDir) {
		return fmt.Errorf("templates: target directory %s: %w", targetDir, apperr.ErrNotFound)
	}
	if id == "" {
		return fmt.Errorf("templates: template id is required: %w", apperr.ErrUnknownTemplate)
	}
	entry, ok := Find(entries, id)
	if !ok {
		return fmt.Errorf("templates: %q: %w", id, apperr.ErrUnknownTemplate)
	}
	if version == "" {
		return fmt.Errorf("templates: version is required for %q: %w", id, apperr.ErrUnknownVersion)
	}
	if entry.Version != version {
		return fmt.Errorf("templates: %q version %q: %w", id, version, apperr.ErrUnknownVersion)
	}
	return copyContents(entry.Dir, targetDir, entry.Contents)
}

func copyContents(src, dst string, nodes []models.ContentNode) error {
	for _, n := range nodes {
		from := filepath.Join(src, n.Name)
		to := filepath.Join(dst, n.Name)
		if n.Type == models.NodeDirectory {
			if err := storage.MkdirIfMissing(to); err != nil {
				return err
			}
			if err := copyContents(from, to, n.Children); err != nil {
				return err
			}
			continue
		}
		if err := storage.CopyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

// Seeder instantiates templates from a template root on demand.
// The catalog is re-read on every call.
type Seeder struct {
	Root     string
	Registry *Registry
}

// Seed copies the template named by ref into dir.
func (s *Seeder) Seed(dir string, ref models.TemplateRef) error {
	entries, err := List(s.Root, s.Registry)
	if err != nil {
		return err
	}
	return Instantiate(dir, entries, ref.ID, ref.Version)
}

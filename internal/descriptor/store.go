// Package descriptor loads, validates and persists project descriptors and
// initialises project directories.
package descriptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Seeder fills a freshly created project directory from a template.
type Seeder interface {
	Seed(dir string, ref models.TemplateRef) error
}

// Store reads and writes descriptors on the local filesystem.
type Store struct {
	now    func() time.Time
	newID  func() string
	home   func() (string, error)
	seeder Seeder
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for lastAccessed.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides project id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithHomeDir overrides how "~" is resolved.
func WithHomeDir(home func() (string, error)) Option {
	return func(s *Store) { s.home = home }
}

// WithSeeder makes Initialize instantiate the requested template.
func WithSeeder(seeder Seeder) Option {
	return func(s *Store) { s.seeder = seeder }
}

// NewStore creates a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		home:  os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExpandPath resolves a leading "~" to the user's home directory.
func (s *Store) ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return path, nil
	}
	home, err := s.home()
	if err != nil {
		return "", fmt.Errorf("descriptor: resolve home: %w", err)
	}
	return storage.ExpandHome(path, home), nil
}

// Load reads the descriptor at path. It returns nil, nil when the directory
// is not accessible or holds no descriptor. A descriptor that cannot be
// parsed is an error wrapping apperr.ErrMalformed.
func (s *Store) Load(path string) (*models.Descriptor, error) {
	dir, err := s.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if !storage.Accessible(dir) {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, models.DescriptorFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("descriptor: read %s: %w", dir, err)
	}
	var d models.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descriptor: parse %s: %w: %v", dir, apperr.ErrMalformed, err)
	}
	return &d, nil
}

// Save writes d to the descriptor file under path, replacing any existing
// one. The directory must already exist.
func (s *Store) Save(path string, d *models.Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor: descriptor is required: %w", apperr.ErrInvalid)
	}
	if d.ID == "" {
		return fmt.Errorf("descriptor: descriptor id is required: %w", apperr.ErrInvalid)
	}
	dir, err := s.ExpandPath(path)
	if err != nil {
		return err
	}
	if !storage.Accessible(dir) {
		return fmt.Errorf("descriptor: project directory %s: %w", dir, apperr.ErrNotFound)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("descriptor: encode: %w", err)
	}
	return storage.WriteFile(filepath.Join(dir, models.DescriptorFile), append(data, '\n'), 0o644)
}

// Initialize makes sure a project directory with a descriptor exists for d.
//
// When the directory already holds a descriptor with an id nothing is
// touched and that descriptor is returned. Otherwise the directory tree is
// created as needed, the template is seeded when one is configured, and the
// descriptor is written. tmpl is recorded only when both id and version are
// set.
func (s *Store) Initialize(d *models.Descriptor, tmpl *models.TemplateRef) (*models.Descriptor, error) {
	if d == nil || d.ID == "" || d.Path == "" {
		return nil, fmt.Errorf("descriptor: an id and path are required to initialize a project: %w", apperr.ErrInvalid)
	}
	dir, err := s.ExpandPath(d.Path)
	if err != nil {
		return nil, err
	}

	if storage.Accessible(dir) {
		existing, err := s.Load(dir)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != "" {
			return existing, nil
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("descriptor: create project directory: %w", err)
	}

	out := *d
	out.Path = dir
	out.Template = nil
	if tmpl.Complete() {
		out.Template = &models.TemplateRef{ID: tmpl.ID, Version: tmpl.Version}
		if s.seeder != nil {
			if err := s.seeder.Seed(dir, *out.Template); err != nil {
				return nil, fmt.Errorf("descriptor: seed template %s@%s: %w", tmpl.ID, tmpl.Version, err)
			}
		}
	}

	if err := s.Save(dir, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

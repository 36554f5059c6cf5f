// Package projectservice coordinates descriptors, templates, asset scans and
// the project index behind the HTTP and MCP surfaces.
package projectservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/assets"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/descriptor"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/templates"
)

// ProjectDetail is a descriptor together with its checksum.
type ProjectDetail struct {
	Descriptor *models.Descriptor `json:"descriptor"`
	Checksum   string             `json:"checksum"`
}

// ProjectPatch lists the descriptor fields a client may change.
type ProjectPatch struct {
	Name     *string `json:"name,omitempty"`
	Favorite *bool   `json:"favorite,omitempty"`
}

// NoteInput is the client-supplied part of a note.
type NoteInput struct {
	URI     string `json:"uri"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Validate checks a note before it is attached.
func (n NoteInput) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.URI, validation.Required),
		validation.Field(&n.Content, validation.Required),
	)
}

// Service coordinates storage and index operations.
type Service struct {
	store     *descriptor.Store
	idx       index.ProjectIndex
	tmplRoot  string
	registry  *templates.Registry
	exclude   []string
	now       func() time.Time
	newNoteID func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a new project service. Template-based creation reads
// from tmplRoot using reg; reg's exclusion list also filters asset scans.
func NewService(store *descriptor.Store, idx index.ProjectIndex, tmplRoot string, reg *templates.Registry) *Service {
	if reg == nil {
		reg = templates.DefaultRegistry()
	}
	exclude := reg.Exclude
	if exclude == nil {
		exclude = templates.DefaultExclude
	}
	return &Service{
		store:     store,
		idx:       idx,
		tmplRoot:  tmplRoot,
		registry:  reg,
		exclude:   exclude,
		now:       time.Now,
		newNoteID: func() string { return uuid.New().String() },
		locks:     make(map[string]*sync.Mutex),
	}
}

// lock serialises read-modify-write cycles on one project's descriptor and
// asset tree. The returned func releases it.
func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Exclude returns the housekeeping names skipped by asset scans.
func (s *Service) Exclude() []string {
	return s.exclude
}

// Templates lists the templates available on disk.
func (s *Service) Templates(_ context.Context) ([]templates.Entry, error) {
	entries, err := templates.List(s.tmplRoot, s.registry)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(entries), nil
}

// Create validates req, initialises the project directory (seeding tmpl when
// given) and registers the project in the index. Creating a project in a
// directory that already has a descriptor returns that descriptor.
func (s *Service) Create(_ context.Context, req *models.CreateRequest, tmpl *models.TemplateRef) (*models.Descriptor, error) {
	report := s.store.ValidateAndBuild(req)
	if !report.IsValid {
		return nil, fmt.Errorf("projectservice: %s: %w", report.Details, apperr.ErrInvalid)
	}
	d := report.Descriptor
	abs, err := filepath.Abs(d.Path)
	if err != nil {
		return nil, fmt.Errorf("projectservice: resolve %s: %w", d.Path, err)
	}
	d.Path = abs

	out, err := s.store.Initialize(d, tmpl)
	if err != nil {
		return nil, err
	}
	if err := s.register(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Open loads the descriptor in dir, stamps lastAccessed and registers the
// project. A directory without a descriptor is apperr.ErrNotFound.
func (s *Service) Open(_ context.Context, dir string) (*models.Descriptor, error) {
	d, err := s.store.Load(dir)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("projectservice: no project at %s: %w", dir, apperr.ErrNotFound)
	}
	defer s.lock(d.ID)()
	// Reload under the lock so a concurrent Update is not overwritten.
	if d, err = s.store.Load(dir); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("projectservice: no project at %s: %w", dir, apperr.ErrNotFound)
	}
	path, err := s.store.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	if path, err = filepath.Abs(path); err != nil {
		return nil, err
	}

	d.LastAccessed = s.now().UTC().Format(time.RFC3339)
	d.Path = path
	if err := s.store.Save(path, d); err != nil {
		return nil, err
	}
	if err := s.register(d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns all known projects, favorites first.
func (s *Service) List(_ context.Context) ([]models.ProjectSummary, error) {
	out, err := s.idx.ListProjects()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(out), nil
}

// Get returns the descriptor of a registered project.
func (s *Service) Get(_ context.Context, id string) (*ProjectDetail, error) {
	_, d, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return detail(d)
}

// Update applies patch to a project's descriptor. A non-empty ifMatch must
// equal the current checksum.
func (s *Service) Update(_ context.Context, id string, patch ProjectPatch, ifMatch string) (*ProjectDetail, error) {
	defer s.lock(id)()
	p, d, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" {
		current, err := checksum.Of(d)
		if err != nil {
			return nil, err
		}
		if ifMatch != current {
			return nil, apperr.ErrConflict
		}
	}
	if patch.Name != nil {
		if err := validation.Validate(*patch.Name, validation.Required); err != nil {
			return nil, fmt.Errorf("projectservice: name: %v: %w", err, apperr.ErrInvalid)
		}
		d.Name = *patch.Name
	}
	if patch.Favorite != nil {
		d.Favorite = *patch.Favorite
	}
	if err := s.store.Save(p.Path, d); err != nil {
		return nil, err
	}
	if err := s.register(d); err != nil {
		return nil, err
	}
	return detail(d)
}

// Assets scans the project directory and merges the persisted notes into it.
func (s *Service) Assets(_ context.Context, id string) (*models.AssetNode, error) {
	p, err := s.idx.GetProject(id)
	if err != nil {
		return nil, err
	}
	return s.mergedTree(p)
}

// AddNote attaches a new note to the asset at in.URI. The URI may be
// absolute or relative to the project root.
func (s *Service) AddNote(_ context.Context, id string, in NoteInput) (*models.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("projectservice: note: %v: %w", err, apperr.ErrInvalid)
	}
	p, err := s.idx.GetProject(id)
	if err != nil {
		return nil, err
	}
	fsys, err := storage.NewFS(p.Path)
	if err != nil {
		return nil, fmt.Errorf("projectservice: project directory: %v: %w", err, apperr.ErrNotFound)
	}
	uri, err := fsys.Resolve(in.URI)
	if err != nil {
		return nil, fmt.Errorf("projectservice: %v: %w", err, apperr.ErrInvalid)
	}

	defer s.lock(id)()
	tree, err := s.mergedTree(p)
	if err != nil {
		return nil, err
	}
	node := assets.Find(tree, uri)
	if node == nil {
		return nil, fmt.Errorf("projectservice: asset %s: %w", in.URI, apperr.ErrNotFound)
	}

	ts := s.now().UTC().Format(time.RFC3339)
	note := models.Note{
		ID:      s.newNoteID(),
		Author:  in.Author,
		Content: in.Content,
		Created: ts,
		Updated: ts,
	}
	node.Notes = append(node.Notes, note)
	if err := s.idx.SaveAssetTree(id, tree); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote replaces the content of an existing note.
func (s *Service) UpdateNote(_ context.Context, id, noteID, content string) (*models.Note, error) {
	if err := validation.Validate(content, validation.Required); err != nil {
		return nil, fmt.Errorf("projectservice: content: %v: %w", err, apperr.ErrInvalid)
	}
	var updated models.Note
	err := s.editNotes(id, noteID, func(notes []models.Note, i int) []models.Note {
		notes[i].Content = content
		notes[i].Updated = s.now().UTC().Format(time.RFC3339)
		updated = notes[i]
		return notes
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNote removes a note from its asset.
func (s *Service) DeleteNote(_ context.Context, id, noteID string) error {
	return s.editNotes(id, noteID, func(notes []models.Note, i int) []models.Note {
		return append(notes[:i], notes[i+1:]...)
	})
}

// PutAsset writes content to rel inside the project, creating parent
// directories. An existing file is replaced only when overwrite is set,
// otherwise apperr.ErrAlreadyExists. Directories, the descriptor and excluded
// names are refused.
func (s *Service) PutAsset(_ context.Context, id, rel string, content []byte, overwrite bool) (string, error) {
	p, err := s.idx.GetProject(id)
	if err != nil {
		return "", err
	}
	fsys, err := storage.NewFS(p.Path)
	if err != nil {
		return "", fmt.Errorf("projectservice: project directory: %v: %w", err, apperr.ErrNotFound)
	}
	abs, err := fsys.Resolve(rel)
	if err != nil || abs == fsys.Root() {
		return "", fmt.Errorf("projectservice: asset path %q: %w", rel, apperr.ErrInvalid)
	}
	name := filepath.Base(abs)
	if name == models.DescriptorFile || slices.Contains(s.exclude, name) {
		return "", fmt.Errorf("projectservice: reserved name %q: %w", name, apperr.ErrInvalid)
	}
	if storage.IsDir(abs) {
		return "", fmt.Errorf("projectservice: %s is a directory: %w", rel, apperr.ErrConflict)
	}
	if !overwrite && fsys.Exists(rel) {
		return "", fmt.Errorf("projectservice: %s: %w", rel, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("projectservice: create parent: %w", err)
	}
	if err := storage.WriteFile(abs, content, 0o644); err != nil {
		return "", err
	}
	return abs, nil
}

// AssetPath resolves rel to an existing file inside the project.
func (s *Service) AssetPath(_ context.Context, id, rel string) (string, error) {
	p, err := s.idx.GetProject(id)
	if err != nil {
		return "", err
	}
	fsys, err := storage.NewFS(p.Path)
	if err != nil {
		return "", fmt.Errorf("projectservice: project directory: %v: %w", err, apperr.ErrNotFound)
	}
	abs, err := fsys.Resolve(rel)
	if err != nil {
		return "", fmt.Errorf("projectservice: %v: %w", err, apperr.ErrInvalid)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("projectservice: asset %s: %w", rel, apperr.ErrNotFound)
	}
	return abs, nil
}

// Search runs a full-text query over all notes.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if err := validation.Validate(query, validation.Required); err != nil {
		return nil, fmt.Errorf("projectservice: query: %v: %w", err, apperr.ErrInvalid)
	}
	if limit <= 0 {
		limit = 20
	}
	out, err := s.idx.SearchNotes(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(out), nil
}

// ProjectForPath returns the registered project whose directory contains
// path, if any.
func (s *Service) ProjectForPath(path string) (*models.ProjectSummary, bool) {
	projects, err := s.idx.ListProjects()
	if err != nil {
		return nil, false
	}
	for i := range projects {
		root := projects[i].Path
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return &projects[i], true
		}
	}
	return nil, false
}

func (s *Service) editNotes(id, noteID string, edit func(notes []models.Note, i int) []models.Note) error {
	defer s.lock(id)()
	p, err := s.idx.GetProject(id)
	if err != nil {
		return err
	}
	tree, err := s.mergedTree(p)
	if err != nil {
		return err
	}
	if !editNote(tree, noteID, edit) {
		return fmt.Errorf("projectservice: note %s: %w", noteID, apperr.ErrNotFound)
	}
	return s.idx.SaveAssetTree(id, tree)
}

func editNote(n *models.AssetNode, noteID string, edit func([]models.Note, int) []models.Note) bool {
	for i := range n.Notes {
		if n.Notes[i].ID == noteID {
			n.Notes = edit(n.Notes, i)
			return true
		}
	}
	for i := range n.Children {
		if editNote(&n.Children[i], noteID, edit) {
			return true
		}
	}
	return false
}

// mergedTree scans the project and overlays the notes stored in the index.
// Notes on assets that no longer exist on disk are dropped on the next save.
func (s *Service) mergedTree(p *models.ProjectSummary) (*models.AssetNode, error) {
	scanned, err := assets.Scan(p.Path, s.exclude)
	if err != nil {
		return nil, fmt.Errorf("projectservice: scan %s: %v: %w", p.Path, err, apperr.ErrNotFound)
	}
	persisted, err := s.idx.LoadAssetTree(p.ID)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		persisted = &models.AssetNode{URI: scanned.URI, Type: models.NodeDirectory}
	}
	return assets.MergeNotes(scanned, persisted)
}

func (s *Service) load(id string) (*models.ProjectSummary, *models.Descriptor, error) {
	p, err := s.idx.GetProject(id)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.store.Load(p.Path)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, fmt.Errorf("projectservice: descriptor missing at %s: %w", p.Path, apperr.ErrNotFound)
	}
	return p, d, nil
}

// register upserts d into the index. A stale entry for the same directory
// under another id is replaced.
func (s *Service) register(d *models.Descriptor) error {
	prev, err := s.idx.GetProjectByPath(d.Path)
	switch {
	case err == nil && prev.ID != d.ID:
		if err := s.idx.DeleteProject(prev.ID); err != nil {
			return err
		}
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return err
	}
	return s.idx.UpsertProject(models.ProjectSummary{
		ID:           d.ID,
		Name:         d.Name,
		Path:         d.Path,
		LastAccessed: d.LastAccessed,
		Favorite:     d.Favorite,
	})
}

func detail(d *models.Descriptor) (*ProjectDetail, error) {
	cs, err := checksum.Of(d)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Descriptor: d, Checksum: cs}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

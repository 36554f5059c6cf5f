// Package testutil provides shared test helpers for setting up template
// trees, workspaces and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/folio/internal/descriptor"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/templates"
)

// Clock is the fixed time used by TestStore.
var Clock = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRegistry returns a registry with a single "basic" template at version 1.
func TestRegistry() *templates.Registry {
	return &templates.Registry{
		Definitions: []templates.Definition{
			{ID: "basic", Name: "Basic", Description: "Code and data folders", Version: "1"},
		},
		Exclude: templates.DefaultExclude,
	}
}

// TestTemplates creates a template root holding basic/1 with a README and
// code/ and data/ folders.
func TestTemplates(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "basic", "1")
	for _, sub := range []string{"code", "data"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Project\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// TestStore returns a descriptor store with a fixed clock that seeds from
// the given template root.
func TestStore(t *testing.T, tmplRoot string, reg *templates.Registry) *descriptor.Store {
	t.Helper()
	return descriptor.NewStore(
		descriptor.WithClock(func() time.Time { return Clock }),
		descriptor.WithSeeder(&templates.Seeder{Root: tmplRoot, Registry: reg}),
	)
}

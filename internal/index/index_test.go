package index

import (
	"errors"
	"os"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProject(t *testing.T, db *DB, id, path string) {
	t.Helper()
	err := db.UpsertProject(models.ProjectSummary{ID: id, Name: id, Path: path, LastAccessed: "2026-10-19T08:00:00Z"})
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"projects", "asset_trees", "notes"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetProject(t *testing.T) {
	db := testDB(t)
	seedProject(t, db, "p1", "/projects/one")

	p, err := db.GetProject("p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.Path != "/projects/one" || p.Favorite {
		t.Errorf("project = %+v", p)
	}

	p.Favorite = true
	p.Name = "Renamed"
	if err := db.UpsertProject(*p); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	byPath, err := db.GetProjectByPath("/projects/one")
	if err != nil {
		t.Fatalf("GetProjectByPath: %v", err)
	}
	if !byPath.Favorite || byPath.Name != "Renamed" {
		t.Errorf("updated project = %+v", byPath)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetProject("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetProjectByPath("/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListProjects_Order(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertProject(models.ProjectSummary{ID: "old", Name: "Old", Path: "/old", LastAccessed: "2026-01-01T00:00:00Z"})
	_ = db.UpsertProject(models.ProjectSummary{ID: "new", Name: "New", Path: "/new", LastAccessed: "2026-10-01T00:00:00Z"})
	_ = db.UpsertProject(models.ProjectSummary{ID: "fav", Name: "Fav", Path: "/fav", LastAccessed: "2025-01-01T00:00:00Z", Favorite: true})

	list, err := db.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != "fav" || list[1].ID != "new" || list[2].ID != "old" {
		t.Errorf("order = %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestSaveAndLoadAssetTree(t *testing.T) {
	db := testDB(t)
	seedProject(t, db, "p1", "/projects/one")

	tree := &models.AssetNode{
		URI:  "/projects/one",
		Type: models.NodeDirectory,
		Children: []models.AssetNode{
			{URI: "/projects/one/data.csv", Type: models.NodeFile, Notes: []models.Note{{ID: "n1", Content: "raw export"}}},
		},
		Notes: []models.Note{},
	}
	if err := db.SaveAssetTree("p1", tree); err != nil {
		t.Fatalf("SaveAssetTree: %v", err)
	}
	got, err := db.LoadAssetTree("p1")
	if err != nil {
		t.Fatalf("LoadAssetTree: %v", err)
	}
	if len(got.Children) != 1 || got.Children[0].Notes[0].Content != "raw export" {
		t.Errorf("tree = %+v", got)
	}
}

func TestLoadAssetTree_Missing(t *testing.T) {
	db := testDB(t)
	got, err := db.LoadAssetTree("nope")
	if err != nil || got != nil {
		t.Errorf("LoadAssetTree = %+v, %v; want nil, nil", got, err)
	}
}

func TestSaveAssetTree_Nil(t *testing.T) {
	db := testDB(t)
	if err := db.SaveAssetTree("p1", nil); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestSearchNotes_Basic(t *testing.T) {
	db := testDB(t)
	seedProject(t, db, "p1", "/projects/one")
	tree := &models.AssetNode{
		URI: "/projects/one",
		Children: []models.AssetNode{
			{URI: "/projects/one/a", Notes: []models.Note{{ID: "n1", Content: "uniqueword appears here"}}},
			{URI: "/projects/one/b", Notes: []models.Note{{ID: "n2", Content: "something else"}}},
		},
	}
	_ = db.SaveAssetTree("p1", tree)

	results, err := db.SearchNotes("uniqueword", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(results) != 1 || results[0].URI != "/projects/one/a" || results[0].NoteID != "n1" {
		t.Errorf("search results = %+v, want 1 hit for /projects/one/a", results)
	}
}

func TestDeleteProject(t *testing.T) {
	db := testDB(t)
	seedProject(t, db, "p1", "/projects/one")
	_ = db.SaveAssetTree("p1", &models.AssetNode{URI: "/projects/one", Notes: []models.Note{{ID: "n1", Content: "gone soon"}}})

	if err := db.DeleteProject("p1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := db.GetProject("p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("project still present: %v", err)
	}
	tree, _ := db.LoadAssetTree("p1")
	if tree != nil {
		t.Error("asset tree should be removed with the project")
	}
	results, _ := db.SearchNotes("gone", 10)
	if len(results) != 0 {
		t.Errorf("notes should be removed with the project: %+v", results)
	}
	if err := db.DeleteProject("p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

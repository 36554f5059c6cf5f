package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projectservice"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/testutil"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) Publish(e sse.Event) {
	r.mu.Lock()
	r.types = append(r.types, e.Type)
	r.mu.Unlock()
}

func (r *recordedEvents) has(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.types {
		if k == kind {
			return true
		}
	}
	return false
}

// testEnv sets up a template root, SQLite DB, service, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (http.Handler, *recordedEvents) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, *recordedEvents) {
	t.Helper()
	tmpl := testutil.TestTemplates(t)
	reg := testutil.TestRegistry()
	svc := projectservice.NewService(testutil.TestStore(t, tmpl, reg), testutil.TestDB(t), tmpl, reg)
	events := &recordedEvents{}
	return NewRouter(svc, authEnabled, token, sseHandler, events), events
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createProject(t *testing.T, router http.Handler) models.Descriptor {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/projects", CreateProjectRequest{
		Directory: t.TempDir(),
		Name:      "Sleep study",
		Type:      models.ProjectTypeNew,
		Template:  &models.TemplateRef{ID: "basic", Version: "1"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d models.Descriptor
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestListTemplates(t *testing.T) {
	router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Templates []struct {
			ID      string `json:"id"`
			Version string `json:"version"`
		} `json:"templates"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Templates) != 1 || resp.Templates[0].ID != "basic" {
		t.Errorf("templates = %+v", resp.Templates)
	}
}

func TestCreateAndGetProject(t *testing.T) {
	router, events := testEnv(t, "")
	d := createProject(t, router)

	if d.Name != "Sleep study" || d.Template == nil || d.Template.ID != "basic" {
		t.Errorf("descriptor = %+v", d)
	}
	if !events.has("project.created") {
		t.Error("project.created not published")
	}

	w := doJSON(t, router, http.MethodGet, "/projects/"+d.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}

	w = doJSON(t, router, http.MethodGet, "/projects", nil)
	var list ProjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Projects) != 1 || list.Projects[0].ID != d.ID {
		t.Errorf("projects = %+v", list.Projects)
	}
}

func TestCreateProject_Invalid(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/projects", CreateProjectRequest{Directory: t.TempDir(), Type: "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/projects", CreateProjectRequest{
		Directory: t.TempDir(), Name: "x", Type: models.ProjectTypeNew,
		Template: &models.TemplateRef{ID: "basic", Version: "9"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown version = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}
}

func TestOpenProject(t *testing.T) {
	router, _ := testEnv(t, "")
	d := createProject(t, router)

	w := doJSON(t, router, http.MethodPost, "/projects/open", OpenProjectRequest{Path: d.Path})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, "/projects/open", OpenProjectRequest{Path: t.TempDir()})
	if w.Code != http.StatusNotFound {
		t.Errorf("open empty dir = %d, want 404", w.Code)
	}
}

func TestUpdateProjectWithOptimisticLocking(t *testing.T) {
	router, _ := testEnv(t, "")
	d := createProject(t, router)

	w := doJSON(t, router, http.MethodGet, "/projects/"+d.ID, nil)
	var detail ProjectDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)

	fav := true
	body, _ := json.Marshal(UpdateProjectRequest{Favorite: &fav})

	req := httptest.NewRequest(http.MethodPut, "/projects/"+d.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", `"wrong"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/projects/"+d.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", `"`+detail.Checksum+`"`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated ProjectDetail
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if !updated.Descriptor.Favorite {
		t.Error("favorite not applied")
	}
}

func TestGetProject_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")
	for _, target := range []string{"/projects/nope", "/projects/nope/assets"} {
		w := doJSON(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", target, w.Code)
		}
	}
}

func TestNotesRoundTrip(t *testing.T) {
	router, events := testEnv(t, "")
	d := createProject(t, router)

	w := doJSON(t, router, http.MethodPost, "/projects/"+d.ID+"/notes",
		AddNoteRequest{URI: "README.md", Author: "ana", Content: "describe the cohort"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add note = %d, body = %s", w.Code, w.Body.String())
	}
	var note models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &note)

	w = doJSON(t, router, http.MethodGet, "/projects/"+d.ID+"/assets", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assets = %d", w.Code)
	}
	var tree models.AssetNode
	_ = json.Unmarshal(w.Body.Bytes(), &tree)
	var found bool
	for _, c := range tree.Children {
		if c.Name == "README.md" && len(c.Notes) == 1 && c.Notes[0].ID == note.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("note not in asset tree: %+v", tree.Children)
	}

	w = doJSON(t, router, http.MethodPut, "/projects/"+d.ID+"/notes/"+note.ID, UpdateNoteRequest{Content: "cohort of 40"})
	if w.Code != http.StatusOK {
		t.Fatalf("update note = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/search?q=cohort", nil)
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Results) != 1 || sr.Results[0].NoteID != note.ID {
		t.Errorf("search = %+v", sr.Results)
	}

	w = doJSON(t, router, http.MethodDelete, "/projects/"+d.ID+"/notes/"+note.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/projects/"+d.ID+"/notes/"+note.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}

	for _, kind := range []string{"note.added", "note.updated", "note.deleted"} {
		if !events.has(kind) {
			t.Errorf("%s not published", kind)
		}
	}
}

func TestAddNote_UnknownAsset(t *testing.T) {
	router, _ := testEnv(t, "")
	d := createProject(t, router)

	w := doJSON(t, router, http.MethodPost, "/projects/"+d.ID+"/notes", AddNoteRequest{URI: "missing.txt", Content: "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/projects/"+d.ID+"/notes", AddNoteRequest{URI: "README.md"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content = %d, want 400", w.Code)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, _ := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, "secret")
	w := doJSON(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnvWithSSE(t, false, "ignored", nil)
	w := doJSON(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusOK {
		t.Errorf("auth disabled = %d, want 200", w.Code)
	}
}

// Minimal SSE handler stub that writes headers and blocks until context done.
func stubSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "secret", stubSSE())
	w := doJSON(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "secret", stubSSE())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with token = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

// Asset upload tests.

func uploadFile(t *testing.T, router http.Handler, projectID, dir, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if dir != "" {
		_ = mw.WriteField("dir", dir)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAsset(t *testing.T) {
	router, events := testEnv(t, "")
	d := createProject(t, router)

	w := uploadFile(t, router, d.ID, "data", "run1.csv", []byte("1,2,3"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AssetUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.URI != filepath.Join(d.Path, "data", "run1.csv") || resp.Size != 5 {
		t.Errorf("response = %+v", resp)
	}
	data, err := os.ReadFile(resp.URI)
	if err != nil || string(data) != "1,2,3" {
		t.Fatalf("file on disk = %q, %v", data, err)
	}
	if !events.has("asset.uploaded") {
		t.Error("asset.uploaded not published")
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+d.ID+"/files/data/run1.csv", nil)
	if w.Code != http.StatusOK || w.Body.String() != "1,2,3" {
		t.Errorf("serve = %d, %q", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/projects/"+d.ID+"/files/data/nope.csv", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("serve missing = %d, want 404", w.Code)
	}
}

func TestUploadAsset_Rejected(t *testing.T) {
	router, _ := testEnv(t, "")
	d := createProject(t, router)

	w := uploadFile(t, router, d.ID, "../..", "escape.txt", []byte("bad"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("escaping dir = %d, want 400", w.Code)
	}
	w = uploadFile(t, router, d.ID, "", models.DescriptorFile, []byte("{}"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("descriptor overwrite = %d, want 400", w.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+d.ID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", rec.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router, _ := testEnv(t, "secret")
	w := doJSON(t, router, http.MethodGet, "/projects?access_token=secret", nil)
	if w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/projects?access_token=nope", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
}

func TestUploadAsset_ExistingFileConflicts(t *testing.T) {
	router, _ := testEnv(t, "")
	d := createProject(t, router)

	if w := uploadFile(t, router, d.ID, "data", "run1.csv", []byte("1")); w.Code != http.StatusCreated {
		t.Fatalf("first upload = %d", w.Code)
	}
	if w := uploadFile(t, router, d.ID, "data", "run1.csv", []byte("2")); w.Code != http.StatusConflict {
		t.Errorf("second upload = %d, want 409", w.Code)
	}
}

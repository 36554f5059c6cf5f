package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projectservice"
	"github.com/starford/folio/internal/sse"
)

// Publisher receives change notifications. *sse.Broker satisfies it.
type Publisher interface {
	Publish(event sse.Event)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *projectservice.Service
	events Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *projectservice.Service, events Publisher) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publish(kind, projectID string, data map[string]string) {
	if h.events != nil {
		h.events.Publish(sse.Event{Type: kind, ProjectID: projectID, Data: data})
	}
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List templates available for new projects
//	@Tags			templates
//	@Produce		json
//	@Success		200	{array}	templates.Entry
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Templates(r.Context())
	if err != nil {
		writeServiceError(w, "list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": entries})
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List known projects, favorites first
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a new project or adopt an existing directory
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	models.Descriptor
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	d, err := h.svc.Create(r.Context(), &models.CreateRequest{
		Directory: req.Directory,
		Name:      req.Name,
		Type:      req.Type,
	}, req.Template)
	if err != nil {
		writeServiceError(w, "create project", err, "directory", req.Directory)
		return
	}
	h.publish("project.created", d.ID, map[string]string{"id": d.ID, "path": d.Path})
	writeJSON(w, http.StatusCreated, d)
}

// OpenProject handles POST /api/projects/open.
//
//	@Summary		Open a project directory and mark it as accessed
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenProjectRequest	true	"Directory to open"
//	@Success		200		{object}	models.Descriptor
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/open [post]
func (h *Handler) OpenProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req OpenProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	d, err := h.svc.Open(r.Context(), req.Path)
	if err != nil {
		writeServiceError(w, "open project", err, "path", req.Path)
		return
	}
	h.publish("project.opened", d.ID, map[string]string{"id": d.ID})
	writeJSON(w, http.StatusOK, d)
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get a project descriptor and its checksum
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	ProjectDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get project", err, "id", id)
		return
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, http.StatusOK, p)
}

// UpdateProject handles PUT /api/projects/{id}.
//
//	@Summary		Update descriptor fields with optimistic concurrency
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Project id"
//	@Param			If-Match	header		string					false	"Descriptor checksum"
//	@Param			body		body		UpdateProjectRequest	true	"Fields to change"
//	@Success		200			{object}	ProjectDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [put]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	p, err := h.svc.Update(r.Context(), id, req, ifMatch)
	if err != nil {
		writeServiceError(w, "update project", err, "id", id)
		return
	}
	h.publish("project.updated", id, map[string]string{"id": id})
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, http.StatusOK, p)
}

// GetAssets handles GET /api/projects/{id}/assets.
//
//	@Summary		Get the project's asset tree with notes
//	@Tags			assets
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	models.AssetNode
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/assets [get]
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tree, err := h.svc.Assets(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get assets", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// AddNote handles POST /api/projects/{id}/notes.
//
//	@Summary		Attach a note to an asset
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Project id"
//	@Param			body	body		AddNoteRequest	true	"Note to attach"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/notes [post]
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.AddNote(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "add note", err, "id", id, "uri", req.URI)
		return
	}
	h.publish("note.added", id, map[string]string{"projectId": id, "noteId": note.ID})
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/projects/{id}/notes/{noteID}.
//
//	@Summary		Replace a note's content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Project id"
//	@Param			noteID	path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"New content"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/notes/{noteID} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id, noteID := chi.URLParam(r, "id"), chi.URLParam(r, "noteID")
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, noteID, req.Content)
	if err != nil {
		writeServiceError(w, "update note", err, "id", id, "note", noteID)
		return
	}
	h.publish("note.updated", id, map[string]string{"projectId": id, "noteId": noteID})
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/projects/{id}/notes/{noteID}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id		path	string	true	"Project id"
//	@Param			noteID	path	string	true	"Note id"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/notes/{noteID} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, noteID := chi.URLParam(r, "id"), chi.URLParam(r, "noteID")
	if err := h.svc.DeleteNote(r.Context(), id, noteID); err != nil {
		writeServiceError(w, "delete note", err, "id", id, "note", noteID)
		return
	}
	h.publish("note.deleted", id, map[string]string{"projectId": id, "noteId": noteID})
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err, "query", q)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

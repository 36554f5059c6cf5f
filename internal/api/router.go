package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/projectservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// events, if non-nil, receives a notification after every successful change.
func NewRouter(svc *projectservice.Service, authEnabled bool, token string, sseHandler http.Handler, events Publisher) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/templates", h.ListTemplates)

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Post("/projects/open", h.OpenProject)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Put("/", h.UpdateProject)
		r.Get("/assets", h.GetAssets)

		r.Post("/files", h.UploadAsset)
		r.Get("/files/*", h.ServeAsset)

		r.Post("/notes", h.AddNote)
		r.Put("/notes/{noteID}", h.UpdateNote)
		r.Delete("/notes/{noteID}", h.DeleteNote)
	})

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

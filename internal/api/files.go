package api

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 50 << 20 // 50 MB

// assetPath extracts the project-relative path from the URL (everything
// after /files/). Supports encoded slashes from OpenAPI clients.
func assetPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// ServeAsset handles GET /api/projects/{id}/files/*.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	id, rel := chi.URLParam(r, "id"), assetPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	abs, err := h.svc.AssetPath(r.Context(), id, rel)
	if err != nil {
		writeServiceError(w, "serve asset", err, "id", id, "path", rel)
		return
	}
	http.ServeFile(w, r, abs)
}

// UploadAsset handles POST /api/projects/{id}/files (multipart/form-data,
// field "file"). The optional form field "dir" names the project-relative
// directory to place the file in; "overwrite=true" replaces an existing file.
//
//	@Summary		Upload a file into a project
//	@Tags			assets
//	@Accept			mpfd
//	@Produce		json
//	@Param			id		path		string	true	"Project id"
//	@Param			file	formData	file	true	"File to upload"
//	@Param			dir		formData	string	false	"Target directory"
//	@Param			overwrite	formData	bool	false	"Replace an existing file"
//	@Success		201		{object}	AssetUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/files [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	// Only the base name of the client filename is used.
	name := path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	overwrite := r.FormValue("overwrite") == "true"
	uri, err := h.svc.PutAsset(r.Context(), id, path.Join(r.FormValue("dir"), name), content, overwrite)
	if err != nil {
		writeServiceError(w, "upload asset", err, "id", id, "file", name)
		return
	}
	h.publish("asset.uploaded", id, map[string]string{"projectId": id, "uri": uri})
	writeJSON(w, http.StatusCreated, AssetUploadResponse{URI: uri, Size: int64(len(content))})
}

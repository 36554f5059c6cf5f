package api

import (
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projectservice"
)

// CreateProjectRequest is the request body for creating or adopting a project.
type CreateProjectRequest struct {
	Directory string              `json:"directory" example:"~/projects" validate:"required"`
	Name      string              `json:"name" example:"Sleep study"`
	Type      models.ProjectType  `json:"type" example:"new" validate:"required"`
	Template  *models.TemplateRef `json:"template,omitempty"`
}

// OpenProjectRequest is the request body for opening a project directory.
type OpenProjectRequest struct {
	Path string `json:"path" example:"~/projects/Sleep study" validate:"required"`
}

// UpdateProjectRequest is the request body for changing descriptor fields.
type UpdateProjectRequest = projectservice.ProjectPatch

// AddNoteRequest is the request body for attaching a note to an asset.
type AddNoteRequest = projectservice.NoteInput

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"Re-ran with new seed" validate:"required"`
}

// ProjectDetail is a descriptor with its checksum (aliased from the domain layer).
type ProjectDetail = projectservice.ProjectDetail

// ProjectListResponse wraps the known projects.
type ProjectListResponse struct {
	Projects []models.ProjectSummary `json:"projects" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	URI  string `json:"uri" example:"/home/me/projects/Sleep study/data/run1.csv" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
}

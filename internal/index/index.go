package index

import "github.com/starford/folio/internal/models"

// ProjectIndex defines the persistence operations the project service needs.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ProjectIndex interface {
	UpsertProject(p models.ProjectSummary) error
	GetProject(id string) (*models.ProjectSummary, error)
	GetProjectByPath(path string) (*models.ProjectSummary, error)
	ListProjects() ([]models.ProjectSummary, error)
	DeleteProject(id string) error
	SaveAssetTree(projectID string, tree *models.AssetNode) error
	LoadAssetTree(projectID string) (*models.AssetNode, error)
	SearchNotes(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies ProjectIndex at compile time.
var _ ProjectIndex = (*DB)(nil)

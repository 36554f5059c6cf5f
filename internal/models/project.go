// Package models defines the domain types for folio.
package models

// FormatVersion is the descriptor schema version written by this build.
const FormatVersion = "1"

// DescriptorFile is the name of the descriptor kept at a project's root.
const DescriptorFile = ".project-descriptor.json"

// ProjectType selects how a creation request is interpreted.
type ProjectType string

// Project types.
const (
	ProjectTypeNew      ProjectType = "new"
	ProjectTypeExisting ProjectType = "existing"
)

// Descriptor is the persisted identity of a project directory.
type Descriptor struct {
	FormatVersion string       `json:"formatVersion"`
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Path          string       `json:"path"`
	LastAccessed  string       `json:"lastAccessed"`
	Favorite      bool         `json:"favorite"`
	Template      *TemplateRef `json:"template,omitempty"`
}

// TemplateRef records which template version seeded a project.
type TemplateRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Complete reports whether both the id and version are set.
func (t *TemplateRef) Complete() bool {
	return t != nil && t.ID != "" && t.Version != ""
}

// CreateRequest is the loosely structured input of project creation.
type CreateRequest struct {
	Directory string      `json:"directory"`
	Name      string      `json:"name"`
	Type      ProjectType `json:"type"`
}

// ValidationReport is the outcome of validating a CreateRequest.
type ValidationReport struct {
	IsValid    bool        `json:"isValid"`
	Details    string      `json:"details"`
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}

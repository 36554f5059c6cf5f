package models

// NodeType distinguishes files from directories in content and asset trees.
type NodeType string

// Node types.
const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

// ContentNode describes one entry of a template's directory tree.
type ContentNode struct {
	Name     string        `json:"name"`
	Type     NodeType      `json:"type"`
	Children []ContentNode `json:"children,omitempty"`
}

// AssetNode is a file or directory of a project, keyed by URI.
type AssetNode struct {
	URI      string      `json:"uri"`
	Name     string      `json:"name,omitempty"`
	Type     NodeType    `json:"type"`
	Children []AssetNode `json:"children,omitempty"`
	Notes    []Note      `json:"notes"`
}

// Note is a free-text annotation attached to an asset.
type Note struct {
	ID      string `json:"id"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// ProjectSummary is a row of the project index.
type ProjectSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	LastAccessed string `json:"lastAccessed"`
	Favorite     bool   `json:"favorite"`
}

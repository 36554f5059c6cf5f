// Package assets builds project asset trees from disk and reconciles them
// with previously persisted notes.
package assets

import (
	"errors"

	"github.com/starford/folio/internal/models"
)

var (
	ErrAssetsRequired      = errors.New("assets: the assets object must be specified")
	ErrNotedAssetsRequired = errors.New("assets: the assets object with notes must be specified")
)

// MergeNotes returns a copy of scanned carrying the notes of persisted.
//
// The two roots are paired unconditionally. Below the root, a scanned child
// takes the notes of the persisted sibling with the same URI; anything that
// exists only in persisted is dropped. Neither input is modified.
func MergeNotes(scanned, persisted *models.AssetNode) (*models.AssetNode, error) {
	if scanned == nil {
		return nil, ErrAssetsRequired
	}
	if persisted == nil {
		return nil, ErrNotedAssetsRequired
	}
	out := merge(*scanned, persisted)
	return &out, nil
}

func merge(scanned models.AssetNode, persisted *models.AssetNode) models.AssetNode {
	out := models.AssetNode{
		URI:   scanned.URI,
		Name:  scanned.Name,
		Type:  scanned.Type,
		Notes: []models.Note{},
	}
	if persisted != nil && len(persisted.Notes) > 0 {
		out.Notes = append(out.Notes, persisted.Notes...)
	}
	if len(scanned.Children) == 0 {
		return out
	}

	var byURI map[string]*models.AssetNode
	if persisted != nil && len(persisted.Children) > 0 {
		byURI = make(map[string]*models.AssetNode, len(persisted.Children))
		for i := range persisted.Children {
			byURI[persisted.Children[i].URI] = &persisted.Children[i]
		}
	}

	out.Children = make([]models.AssetNode, len(scanned.Children))
	for i, child := range scanned.Children {
		out.Children[i] = merge(child, byURI[child.URI])
	}
	return out
}

// Find returns the node of tree whose URI equals uri, or nil.
func Find(tree *models.AssetNode, uri string) *models.AssetNode {
	if tree == nil {
		return nil
	}
	if tree.URI == uri {
		return tree
	}
	for i := range tree.Children {
		if n := Find(&tree.Children[i], uri); n != nil {
			return n
		}
	}
	return nil
}

package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/models"
)

// Scan walks root and returns its asset tree without notes.
// Entries whose name appears in exclude are skipped at every level, as is
// the project descriptor. Children follow os.ReadDir order.
func Scan(root string, exclude []string) (*models.AssetNode, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("assets: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets: root is not a directory: %s", abs)
	}

	skip := make(map[string]struct{}, len(exclude)+1)
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	skip[models.DescriptorFile] = struct{}{}

	node, err := scanDir(abs, skip)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func scanDir(dir string, skip map[string]struct{}) (models.AssetNode, error) {
	node := models.AssetNode{
		URI:  dir,
		Name: filepath.Base(dir),
		Type: models.NodeDirectory,
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return node, fmt.Errorf("assets: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if _, ok := skip[e.Name()]; ok {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			child, err := scanDir(p, skip)
			if err != nil {
				return node, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		node.Children = append(node.Children, models.AssetNode{
			URI:  p,
			Name: e.Name(),
			Type: models.NodeFile,
		})
	}
	return node, nil
}

// Package templates discovers versioned project templates on disk and
// instantiates them into new project directories.
package templates

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultExclude lists housekeeping files that never belong to a template.
var DefaultExclude = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

// Definition declares a known template and its current version.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Version     string `yaml:"version" json:"version"`
}

// Validate validates the template definition.
func (d *Definition) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Version, validation.Required),
	)
}

// Registry is the set of templates folio is willing to expose.
type Registry struct {
	Definitions []Definition `yaml:"definitions"`
	Exclude     []string     `yaml:"exclude"`
}

// Validate validates every definition and rejects duplicate ids.
func (r *Registry) Validate() error {
	seen := make(map[string]struct{}, len(r.Definitions))
	for i := range r.Definitions {
		d := &r.Definitions[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("template %q is declared twice", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	for _, d := range r.Definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

func (r *Registry) excluded() map[string]struct{} {
	names := r.Exclude
	if names == nil {
		names = DefaultExclude
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// DefaultRegistry returns the templates shipped with folio.
func DefaultRegistry() *Registry {
	return &Registry{
		Definitions: []Definition{
			{
				ID:          "empty",
				Name:        "Empty project",
				Description: "A project folder with no predefined structure.",
				Version:     "1",
			},
			{
				ID:          "basic",
				Name:        "Basic project",
				Description: "Separate folders for code, data, documents and results.",
				Version:     "1",
			},
			{
				ID:          "study",
				Name:        "Study project",
				Description: "A research study layout with protocol, raw and processed data.",
				Version:     "1",
			},
		},
		Exclude: append([]string(nil), DefaultExclude...),
	}
}

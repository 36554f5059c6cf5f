package descriptor

import (
	"fmt"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
)

const detailsNoInput = "No project information was provided for validation"

// ValidateAndBuild checks a creation request and, when it is acceptable,
// builds the descriptor the project will be initialised with.
func (s *Store) ValidateAndBuild(req *models.CreateRequest) models.ValidationReport {
	if req == nil {
		return invalid(detailsNoInput)
	}
	if req.Type != models.ProjectTypeNew && req.Type != models.ProjectTypeExisting {
		return invalid(fmt.Sprintf("An unknown project type (%s) was specified.", req.Type))
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Directory, validation.Required),
	); err != nil {
		return invalid(err.Error())
	}

	d := &models.Descriptor{
		FormatVersion: models.FormatVersion,
		ID:            s.newID(),
		LastAccessed:  s.now().UTC().Format(time.RFC3339),
		Favorite:      false,
	}

	switch req.Type {
	case models.ProjectTypeNew:
		dir, err := s.ExpandPath(req.Directory)
		if err != nil {
			return invalid(err.Error())
		}
		folder := SanitizeFolderName(req.Name)
		if folder == "" {
			return invalid("A project name that can be used as a folder name is required.")
		}
		d.Name = req.Name
		d.Path = filepath.Join(dir, folder)
	case models.ProjectTypeExisting:
		dir, err := s.ExpandPath(req.Directory)
		if err != nil {
			return invalid(err.Error())
		}
		d.Path = dir
		d.Name = filepath.Base(filepath.Clean(dir))
	}

	return models.ValidationReport{IsValid: true, Details: "", Descriptor: d}
}

func invalid(details string) models.ValidationReport {
	return models.ValidationReport{IsValid: false, Details: details}
}

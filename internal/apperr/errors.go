// Package apperr holds the sentinel errors shared across folio's layers.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalid         = errors.New("invalid input")
	ErrMalformed       = errors.New("malformed descriptor")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrUnknownVersion  = errors.New("unknown template version")
)

// Package apperr defines sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidPosition = errors.New("invalid position")
	ErrNoSuggestion    = errors.New("no active suggestion")
)

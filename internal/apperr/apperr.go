// Package apperr defines the error kinds shared across the service.
// Callers classify wrapped errors with errors.Is and map them to
// transport-level responses at the edge.
package apperr

import "errors"

var (
	// ErrValidation marks rejected input: empty question, bad chunk or
	// query parameters, unsupported file types.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks operations referencing an unknown document.
	ErrNotFound = errors.New("not found")

	// ErrProvider marks embedding or generation backend failures.
	ErrProvider = errors.New("provider error")

	// ErrStorage marks persistence failures on chunk or history writes.
	ErrStorage = errors.New("storage error")
)

package models

import "errors"

// Errors shared by the services and the HTTP layer. Wrap them with %w and
// compare with errors.Is.
var (
	// Input errors
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	// Task lifecycle
	ErrAlreadyTerminal = errors.New("task already completed or skipped")

	// Storage and adapters
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrConflict              = errors.New("concurrent modification")
)

package domain

import "errors"

var (
	// ErrValidation marks bad or missing caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup that matched no record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that collided with an existing record.
	ErrConflict = errors.New("conflict")
	// ErrProvider marks a failure reported by the payment provider.
	ErrProvider = errors.New("provider error")
)

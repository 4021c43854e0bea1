package habit

import "errors"

var (
	// ErrValidation is returned when input is rejected before any store is touched.
	ErrValidation = errors.New("invalid habit")

	// ErrAuthRequired is returned when an operation is attempted without an owner identity.
	ErrAuthRequired = errors.New("authentication required: no owner identity")

	// ErrNotFound is returned when a habit does not exist in the store that was asked.
	ErrNotFound = errors.New("habit not found")

	// ErrDuplicateID is returned by insert-only writes when the key is already taken.
	ErrDuplicateID = errors.New("duplicate habit id")
)

package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key (id or serial) is already taken.
	ErrDuplicate = errors.New("persistence: duplicate key")
	// ErrImmutableField is returned when an update attempts to change an immutable attribute.
	ErrImmutableField = errors.New("persistence: immutable field")
	// ErrReferenceMissing is returned when a record references a parent that does not exist.
	ErrReferenceMissing = errors.New("persistence: referenced record missing")
)

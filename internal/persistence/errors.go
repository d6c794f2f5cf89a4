package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned for CHECK or NOT NULL failures and
	// for records rejected before they reach the database.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row is missing or
	// still referenced.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrStateConflict is returned when a row is not in the state an update
	// requires, e.g. completing a shift that already has an entry.
	ErrStateConflict = errors.New("persistence: state conflict")
)

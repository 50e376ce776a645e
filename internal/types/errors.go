package types

import "errors"

// Sentinel error kinds. Call sites wrap these with fmt.Errorf("...: %w", ...)
// so callers can errors.Is against the kind while still getting a specific
// message.
var (
	// ErrNotFound is returned when a lookup by name finds no matching row.
	ErrNotFound = errors.New("history: not found")

	// ErrConstraintViolation is returned when an insert references a
	// missing branch or parent branch, or when a rollback does not raise
	// the revision. A duplicate tag or branch name is reported as a false
	// result with a nil error instead.
	ErrConstraintViolation = errors.New("history: constraint violation")

	// ErrReadOnly is returned when a mutating operation is issued against a
	// handle opened read-only.
	ErrReadOnly = errors.New("history: database opened read-only")

	// ErrNotAvailableAtSchema is returned when an operation has no meaning
	// at the schema revision the open database carries.
	ErrNotAvailableAtSchema = errors.New("history: not available at this schema revision")

	// ErrStorage names the I/O-or-corruption failure kind. The backends do
	// not wrap their driver errors with it; those are returned with added
	// context only.
	ErrStorage = errors.New("history: storage error")
)

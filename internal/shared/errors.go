package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchoolYear indicates a malformed school-year name.
	ErrInvalidSchoolYear = errors.New("invalid school year")
	// ErrConflict indicates a lost race on a guarded update.
	ErrConflict = errors.New("concurrent update conflict")
)

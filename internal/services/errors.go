package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a production scoped record does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersion is returned when a guarded write sees a newer production version
	ErrVersion = errors.New("E_VERSION - Refresh and reconcile with current version and retry.")

	// ErrReadOnly is returned when a system record is modified
	ErrReadOnly = errors.New("record is read-only")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s '%s' %w", kind, id, ErrNotFound)
}

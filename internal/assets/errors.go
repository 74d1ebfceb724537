package assets

import (
	"errors"
	"fmt"
)

// Errors returned by backends and the packager.
var (
	ErrNameConflict = errors.New("asset name already exists")
	ErrPersistence  = errors.New("asset persistence failed")
	ErrInvalidName  = errors.New("invalid asset name")
	ErrNotFound     = errors.New("asset not found")
)

// PersistenceError reports which packaging step failed and on what path.
type PersistenceError struct {
	Step string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%s): %v", e.Step, e.Path, e.Err)
}

// Unwrap exposes both ErrPersistence and the underlying error.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

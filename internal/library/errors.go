package library

import (
	"fmt"

	"github.com/starford/shelf/internal/apperr"
)

var (
	// ErrBrokenParent marks a parent reference that does not resolve to a
	// stored directory. It signals a corrupted library.
	ErrBrokenParent = fmt.Errorf("broken parent reference: %w", apperr.ErrNotFound)

	ErrDirectoryNotEmpty = fmt.Errorf("directory not empty: %w", apperr.ErrConflict)
	ErrFileInUse         = fmt.Errorf("file in use: %w", apperr.ErrConflict)
	ErrDuplicateID       = fmt.Errorf("duplicate id: %w", apperr.ErrAlreadyExists)
	ErrInvalidParent     = fmt.Errorf("invalid parent: %w", apperr.ErrInvalid)
	ErrNotDirectory      = fmt.Errorf("not a directory: %w", apperr.ErrInvalid)
	ErrTypeMismatch      = fmt.Errorf("node type mismatch: %w", apperr.ErrInvalid)
	ErrCycle             = fmt.Errorf("parent cycle: %w", apperr.ErrInvalid)
	ErrEmptyName         = fmt.Errorf("empty name: %w", apperr.ErrInvalid)
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, apperr.ErrNotFound)
}

package tempomap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is returned when a mutation targets the start of the timeline or a position outside
	// the representable sample range.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNotRemovable is returned when removal of one of the initial, non-movable sections is requested.
	ErrNotRemovable = errors.New("section is not removable")

	// ErrSectionNotFound is returned for handles the map does not own, or that name a section of the other kind.
	ErrSectionNotFound = errors.New("section not found")

	// ErrInconsistent is returned when a recompute leaves the sequence mis-ordered. The edit is discarded.
	ErrInconsistent = errors.New("metrics sequence inconsistent")
)

// StateError is returned when a persisted state cannot be loaded. The map keeps its previous state.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid tempo map state: %s", e.Reason)
}

func stateErrorf(format string, args ...interface{}) *StateError {
	return &StateError{Reason: fmt.Sprintf(format, args...)}
}

package ai

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDimensions = errors.New("invalid board dimensions")

	ErrOutOfBounds   = errors.New("cell out of bounds")
	ErrNegativeCount = errors.New("negative mine count")
	ErrCountTooLarge = errors.New("mine count exceeds neighbourhood")
	ErrInconsistent  = errors.New("mine count contradicts known cells")
	ErrKnownMine     = errors.New("cell is a known mine")
)

// InvalidObservationError is returned when an observation breaks the caller
// contract. The agent state is left untouched.
type InvalidObservationError struct {
	Cell   Cell
	Count  int
	Reason error
	height int
	width  int
	limit  int
}

func (e *InvalidObservationError) Error() string {
	switch e.Reason {
	case ErrOutOfBounds:
		return fmt.Sprintf("invalid observation %s: out of range - board (%d, %d)", e.Cell, e.height, e.width)
	case ErrNegativeCount:
		return fmt.Sprintf("invalid observation %s: negative count %d", e.Cell, e.Count)
	case ErrCountTooLarge:
		return fmt.Sprintf("invalid observation %s: count %d but only %d neighbours", e.Cell, e.Count, e.limit)
	case ErrInconsistent:
		return fmt.Sprintf("invalid observation %s: count %d contradicts known mines and safes", e.Cell, e.Count)
	case ErrKnownMine:
		return fmt.Sprintf("invalid observation %s: cell is a known mine", e.Cell)
	default:
		return fmt.Sprintf("invalid observation %s = %d", e.Cell, e.Count)
	}
}

func (e *InvalidObservationError) Unwrap() error {
	return e.Reason
}

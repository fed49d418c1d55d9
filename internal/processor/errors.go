package processor

import (
	"errors"
	"fmt"

	"github.com/divVerent/staffmerger/internal/score"
)

var (
	// ErrMismatchedTuplets is reported for a layer whose sources have tuplet
	// entries that do not line up with the base track.
	ErrMismatchedTuplets = errors.New("tuplets of the merged layers do not line up")

	// ErrInvalidSpliceAnchor is reported when an entry cannot be spliced as
	// there is no base entry before it.
	ErrInvalidSpliceAnchor = errors.New("no base entry to splice after")

	// ErrEmptyDestinationConfirmationRequired is returned when nothing is
	// assigned and the caller did not confirm clearing the destination.
	ErrEmptyDestinationConfirmationRequired = errors.New("no layer is assigned, clearing the destination needs confirmation")

	// ErrDestinationInUse is reported for a layer whose destination still
	// holds source data of a rejected layer.
	ErrDestinationInUse = errors.New("destination holds data of a rejected layer")

	ErrInvalidTask = errors.New("invalid merge task")
)

// SlotError is a failure confined to one destination layer.
type SlotError struct {
	Slot    score.VoiceSlot
	Measure int
	Err     error
}

func (e *SlotError) Error() string {
	if e.Measure == 0 {
		return fmt.Sprintf("layer %d: %v", e.Slot, e.Err)
	}
	return fmt.Sprintf("layer %d measure %d: %v", e.Slot, e.Measure, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// isSlotError reports whether err only concerns a single layer.
func isSlotError(err error) bool {
	var se *SlotError
	return errors.As(err, &se)
}

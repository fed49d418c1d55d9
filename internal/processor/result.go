package processor

import (
	"errors"

	"github.com/divVerent/staffmerger/internal/score"
)

// SlotState is the state of one destination layer during a run.
type SlotState int

const (
	Unassigned SlotState = iota
	SingleSource
	MultiSource
	Validated
	Merged
	Rejected
	Cleared
)

func (s SlotState) String() string {
	switch s {
	case Unassigned:
		return "unassigned"
	case SingleSource:
		return "single source"
	case MultiSource:
		return "multi source"
	case Validated:
		return "validated"
	case Merged:
		return "merged"
	case Rejected:
		return "rejected"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s SlotState) Terminal() bool {
	return s == Merged || s == Rejected || s == Cleared
}

// SlotResult is the outcome of one destination layer.
type SlotResult struct {
	Slot    score.VoiceSlot
	State   SlotState
	Sources []Assignment
	// Base indexes Sources; -1 unless more than one source had content.
	Base int
	// Scratch is set if the layer was staged on the scratch staff.
	Scratch bool
	// Entries counts the entries written to the destination.
	Entries int
	Err     error
}

// Report collects the outcome of a run.
type Report struct {
	DestinationStaff score.StaffID
	Measures         MeasureRange
	Slots            []SlotResult
	// ClearedSources lists source layers emptied after being moved.
	ClearedSources []score.Location
	// ScratchStaff is the staff used as scratch location, or 0.
	ScratchStaff score.StaffID
}

func newReport(task *MergeTask) *Report {
	r := &Report{
		DestinationStaff: task.DestinationStaff,
		Measures:         task.Measures,
	}
	for _, slot := range score.Slots() {
		r.Slots = append(r.Slots, SlotResult{Slot: slot, Base: -1})
	}
	return r
}

// Slot returns the result record of a slot.
func (r *Report) Slot(slot score.VoiceSlot) *SlotResult {
	return &r.Slots[slot-score.FirstSlot]
}

// Err joins the errors of all rejected layers.
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Slots {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

package processor

import (
	"fmt"

	"github.com/divVerent/staffmerger/internal/score"
)

// MeasureRange is an inclusive range of 1-based measure numbers.
type MeasureRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

func (r MeasureRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("measure %d", r.Start)
	}
	return fmt.Sprintf("measures %d-%d", r.Start, r.End)
}

// Measures lists the measure numbers in the range.
func (r MeasureRange) Measures() []int {
	var out []int
	for m := r.Start; m <= r.End; m++ {
		out = append(out, m)
	}
	return out
}

// Assignment routes one layer of a source staff into a layer of the
// destination staff.
type Assignment struct {
	SourceStaff     score.StaffID   `yaml:"source_staff"`
	SourceSlot      score.VoiceSlot `yaml:"source_slot"`
	DestinationSlot score.VoiceSlot `yaml:"destination_slot"`
}

func (a Assignment) Source() score.Location {
	return score.Location{Staff: a.SourceStaff, Slot: a.SourceSlot}
}

func (a Assignment) String() string {
	return fmt.Sprintf("%v -> layer %d", a.Source(), a.DestinationSlot)
}

// MergeTask describes one consolidation run.
type MergeTask struct {
	DestinationStaff score.StaffID `yaml:"destination_staff"`
	Measures         MeasureRange  `yaml:"measures"`
	Assignments      []Assignment  `yaml:"assignments"`
	// AutoClearUnassignedSlots empties destination layers nothing was
	// assigned to. Nil means true.
	AutoClearUnassignedSlots *bool `yaml:"auto_clear_unassigned_slots,omitempty"`

	// DocumentSHA256 pins the task to the document it was written for.
	DocumentSHA256 string `yaml:"document_sha256,omitempty"`
}

func (t *MergeTask) autoClear() bool {
	return t.AutoClearUnassignedSlots == nil || *t.AutoClearUnassignedSlots
}

// Validate checks the task against the document layout.
func (t *MergeTask) Validate(bars score.Bars) error {
	if t.Measures.Start < 1 || t.Measures.End < t.Measures.Start {
		return fmt.Errorf("%w: invalid %v", ErrInvalidTask, t.Measures)
	}
	if t.Measures.End > len(bars) {
		return fmt.Errorf("%w: %v past the end of the document (%d measures)", ErrInvalidTask, t.Measures, len(bars))
	}
	seen := map[score.Location]bool{}
	for _, a := range t.Assignments {
		if !a.SourceSlot.Valid() || !a.DestinationSlot.Valid() {
			return fmt.Errorf("%w: %v: layers must be in 1..4", ErrInvalidTask, a)
		}
		if seen[a.Source()] {
			return fmt.Errorf("%w: %v is assigned more than once", ErrInvalidTask, a.Source())
		}
		seen[a.Source()] = true
	}
	return nil
}

// bySlot groups the assignments by destination slot, keeping task order.
func (t *MergeTask) bySlot() map[score.VoiceSlot][]Assignment {
	out := map[score.VoiceSlot][]Assignment{}
	for _, a := range t.Assignments {
		out[a.DestinationSlot] = append(out[a.DestinationSlot], a)
	}
	return out
}

// slotOrder returns the order slots are processed in: a slot fed by the
// destination's own layer of the same number goes first, the rest follow
// in slot-number order.
func (t *MergeTask) slotOrder() []score.VoiceSlot {
	var first []score.VoiceSlot
	var rest []score.VoiceSlot
	for _, slot := range score.Slots() {
		inPlace := false
		for _, a := range t.Assignments {
			if a.DestinationSlot == slot && a.SourceStaff == t.DestinationStaff && a.SourceSlot == slot {
				inPlace = true
			}
		}
		if inPlace && len(first) == 0 {
			first = append(first, slot)
		} else {
			rest = append(rest, slot)
		}
	}
	return append(first, rest...)
}

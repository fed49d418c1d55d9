package score

import (
	"fmt"
	"slices"
)

// Ticks is the unit of time within a document. A quarter note is
// TicksPerQuarter ticks; both positions and durations use it.
type Ticks int64

const (
	TicksPerQuarter Ticks = 1024
	TicksPerWhole         = 4 * TicksPerQuarter
)

// Pitch is a MIDI key number.
type Pitch uint8

// StaffID identifies a staff in the host document.
type StaffID int

// VoiceSlot is one of the four layers of a staff.
type VoiceSlot int

const (
	FirstSlot VoiceSlot = 1
	LastSlot  VoiceSlot = 4
	NumSlots            = int(LastSlot)
)

// Slots returns all voice slots in slot-number order.
func Slots() []VoiceSlot {
	return []VoiceSlot{1, 2, 3, 4}
}

// Valid reports whether the slot is one of 1..4.
func (s VoiceSlot) Valid() bool {
	return s >= FirstSlot && s <= LastSlot
}

// Location is a (staff, voice slot) pair, independent of measure.
type Location struct {
	Staff StaffID
	Slot  VoiceSlot
}

func (l Location) String() string {
	return fmt.Sprintf("staff %d layer %d", l.Staff, l.Slot)
}

// Address is the cell a Timeline lives in.
type Address struct {
	Staff   StaffID
	Slot    VoiceSlot
	Measure int
}

func (a Address) Location() Location {
	return Location{Staff: a.Staff, Slot: a.Slot}
}

func (a Address) String() string {
	return fmt.Sprintf("staff %d layer %d measure %d", a.Staff, a.Slot, a.Measure)
}

// TupletID identifies a tuplet within one timeline.
type TupletID int

// Tuplet spans the entries starting at Start whose position lies in
// [Start, Start+Reference).
type Tuplet struct {
	ID        TupletID `yaml:"id"`
	Start     Ticks    `yaml:"start"`
	Reference Ticks    `yaml:"reference"`
	// Num and Denom describe the ratio, e.g. 3 in the time of 2.
	Num   int `yaml:"num,omitempty"`
	Denom int `yaml:"denom,omitempty"`
}

// End returns the first position past the tuplet.
func (t Tuplet) End() Ticks {
	return t.Start + t.Reference
}

// Contains reports whether pos falls within the tuplet.
func (t Tuplet) Contains(pos Ticks) bool {
	return pos >= t.Start && pos < t.End()
}

// Entry is a single note or rest.
type Entry struct {
	Position        Ticks
	ActualDuration  Ticks
	NominalDuration Ticks
	IsNote          bool
	Pitches         []Pitch
	IsStartOfTuplet bool
	TupletRefs      []TupletID
	Modifiers       Modifiers
}

// IsRest reports whether the entry is a rest.
func (e *Entry) IsRest() bool {
	return !e.IsNote
}

// End returns the position right after the entry.
func (e *Entry) End() Ticks {
	return e.Position + e.ActualDuration
}

// AddPitches adds pitches to the entry, turning a rest into a note.
func (e *Entry) AddPitches(pitches ...Pitch) {
	if len(pitches) == 0 {
		return
	}
	e.IsNote = true
	e.Pitches = append(e.Pitches, pitches...)
	slices.Sort(e.Pitches)
	e.Pitches = slices.Compact(e.Pitches)
}

// Scaled returns the nominal duration corresponding to actual when the
// entry's tuplet ratio is applied.
func (e *Entry) Scaled(actual Ticks) Ticks {
	if e.ActualDuration == 0 || e.NominalDuration == 0 {
		return actual
	}
	return actual * e.NominalDuration / e.ActualDuration
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	e.Pitches = slices.Clone(e.Pitches)
	e.TupletRefs = slices.Clone(e.TupletRefs)
	e.Modifiers = e.Modifiers.Clone()
	return e
}

func (e Entry) String() string {
	kind := "Rest"
	if e.IsNote {
		kind = fmt.Sprintf("Note%v", e.Pitches)
	}
	return fmt.Sprintf("%s@%d,dur=%d", kind, e.Position, e.ActualDuration)
}

package score

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Timeline is the contiguous sequence of entries of one voice slot of one
// staff in one measure. An empty timeline represents a vacant layer.
type Timeline struct {
	// ID is the storage identity; it changes whenever a timeline is cloned
	// to a new address.
	ID      uuid.UUID
	Address Address
	// Length is the nominal length of the measure.
	Length  Ticks
	Entries []Entry
	Tuplets []Tuplet
}

// ErrNotContiguous is returned by Validate.
var ErrNotContiguous = errors.New("timeline is not contiguous")

// New returns an empty timeline at addr.
func New(addr Address, length Ticks) *Timeline {
	return &Timeline{
		ID:      uuid.New(),
		Address: addr,
		Length:  length,
	}
}

// IsEmpty reports whether the layer holds no entries at all.
func (t *Timeline) IsEmpty() bool {
	return len(t.Entries) == 0
}

// HasNotes reports whether any entry is a note.
func (t *Timeline) HasNotes() bool {
	return slices.ContainsFunc(t.Entries, func(e Entry) bool {
		return e.IsNote
	})
}

// CloneTo returns a deep copy addressed at addr with a fresh storage id.
func (t *Timeline) CloneTo(addr Address) *Timeline {
	out := &Timeline{
		ID:      uuid.New(),
		Address: addr,
		Length:  t.Length,
		Entries: make([]Entry, 0, len(t.Entries)),
		Tuplets: slices.Clone(t.Tuplets),
	}
	for _, e := range t.Entries {
		out.Entries = append(out.Entries, e.Clone())
	}
	return out
}

// Clone returns a deep copy at the same address, keeping the storage id.
func (t *Timeline) Clone() *Timeline {
	out := t.CloneTo(t.Address)
	out.ID = t.ID
	return out
}

// Clear removes all entries and tuplets.
func (t *Timeline) Clear() {
	t.Entries = nil
	t.Tuplets = nil
}

// Find returns the index of the entry starting exactly at pos.
func (t *Timeline) Find(pos Ticks) (int, bool) {
	return slices.BinarySearchFunc(t.Entries, pos, func(e Entry, p Ticks) int {
		switch {
		case e.Position < p:
			return -1
		case e.Position > p:
			return +1
		}
		return 0
	})
}

// Preceding returns the index of the entry with the greatest position
// strictly before pos, or -1 if there is none.
func (t *Timeline) Preceding(pos Ticks) int {
	i, _ := t.Find(pos)
	return i - 1
}

// InsertAfter inserts e right after the entry at index i; i == -1 inserts
// at the front. Positions are not adjusted; the caller shrinks or grows a
// neighbor in the same step.
func (t *Timeline) InsertAfter(i int, e Entry) {
	t.Entries = slices.Insert(t.Entries, i+1, e)
}

// SetDuration changes the actual duration of entry i, scaling the nominal
// duration by the entry's tuplet ratio.
func (t *Timeline) SetDuration(i int, d Ticks) {
	e := &t.Entries[i]
	e.NominalDuration = e.Scaled(d)
	e.ActualDuration = d
}

// DeleteNullEntries removes zero-duration entries and returns how many
// were removed.
func (t *Timeline) DeleteNullEntries() int {
	before := len(t.Entries)
	t.Entries = slices.DeleteFunc(t.Entries, func(e Entry) bool {
		return e.ActualDuration <= 0
	})
	return before - len(t.Entries)
}

// IsPartOfTuplet reports whether entry i lies within any tuplet span.
func (t *Timeline) IsPartOfTuplet(i int) bool {
	pos := t.Entries[i].Position
	return slices.ContainsFunc(t.Tuplets, func(tu Tuplet) bool {
		return tu.Contains(pos)
	})
}

// TupletEntries counts the entries that are part of a tuplet.
func (t *Timeline) TupletEntries() int {
	n := 0
	for i := range t.Entries {
		if t.IsPartOfTuplet(i) {
			n++
		}
	}
	return n
}

// Duration sums the actual durations of all entries.
func (t *Timeline) Duration() Ticks {
	var sum Ticks
	for _, e := range t.Entries {
		sum += e.ActualDuration
	}
	return sum
}

// Validate checks the contiguity invariant.
func (t *Timeline) Validate() error {
	if t.IsEmpty() {
		return nil
	}
	var pos Ticks
	for i, e := range t.Entries {
		if e.ActualDuration <= 0 {
			return fmt.Errorf("%w: %v: entry %d (%v) has no duration", ErrNotContiguous, t.Address, i, e)
		}
		if e.Position != pos {
			return fmt.Errorf("%w: %v: entry %d (%v) should start at %d", ErrNotContiguous, t.Address, i, e, pos)
		}
		if e.IsNote != (len(e.Pitches) > 0) {
			return fmt.Errorf("%v: entry %d (%v) has inconsistent pitches", t.Address, i, e)
		}
		pos = e.End()
	}
	if pos != t.Length {
		return fmt.Errorf("%w: %v: entries end at %d, measure length is %d", ErrNotContiguous, t.Address, pos, t.Length)
	}
	return nil
}

// Rebar redistributes the entries so that they exactly fill the measure:
// positions are recomputed from the durations, entries running past the
// bar line are cut and a trailing gap is filled with a rest. It returns
// whether anything changed.
func (t *Timeline) Rebar() bool {
	if t.IsEmpty() {
		return false
	}
	changed := t.DeleteNullEntries() > 0
	var pos Ticks
	out := t.Entries[:0]
	for _, e := range t.Entries {
		if pos >= t.Length {
			changed = true
			continue
		}
		if e.Position != pos {
			e.Position = pos
			changed = true
		}
		if e.End() > t.Length {
			e.NominalDuration = e.Scaled(t.Length - pos)
			e.ActualDuration = t.Length - pos
			changed = true
		}
		out = append(out, e)
		pos = e.End()
	}
	t.Entries = out
	if pos < t.Length {
		t.Entries = append(t.Entries, Entry{
			Position:        pos,
			ActualDuration:  t.Length - pos,
			NominalDuration: t.Length - pos,
		})
		changed = true
	}
	t.Tuplets = slices.DeleteFunc(t.Tuplets, func(tu Tuplet) bool {
		return tu.Start >= t.Length
	})
	t.markTupletStarts()
	return changed
}

func (t *Timeline) markTupletStarts() {
	for i := range t.Entries {
		e := &t.Entries[i]
		e.IsStartOfTuplet = slices.ContainsFunc(t.Tuplets, func(tu Tuplet) bool {
			return tu.Start == e.Position
		})
	}
}

// SetPositions recomputes entry positions from durations, starting at 0.
func (t *Timeline) SetPositions() {
	var pos Ticks
	for i := range t.Entries {
		t.Entries[i].Position = pos
		pos += t.Entries[i].ActualDuration
	}
	t.markTupletStarts()
}

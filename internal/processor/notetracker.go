package processor

import (
	"slices"
)

type key struct {
	ch, note uint8
}

func keyCompare(a, b key) int {
	if a.ch != b.ch {
		return int(a.ch) - int(b.ch)
	}
	return int(a.note) - int(b.note)
}

// noteTracker counts how often each note is currently sounding, so that
// two layers sharing a channel do not cut each other's notes.
type noteTracker struct {
	activeNotes map[key]int
}

func newNoteTracker() *noteTracker {
	return &noteTracker{
		activeNotes: map[key]int{},
	}
}

func (t *noteTracker) Playing() bool {
	return len(t.activeNotes) > 0
}

// Start registers a note start and returns whether a note-on is needed.
func (t *noteTracker) Start(k key) bool {
	t.activeNotes[k]++
	return t.activeNotes[k] == 1
}

// End registers a note end and returns whether a note-off is needed.
func (t *noteTracker) End(k key) bool {
	if t.activeNotes[k] == 0 {
		return false
	}
	t.activeNotes[k]--
	if t.activeNotes[k] == 0 {
		delete(t.activeNotes, k)
		return true
	}
	return false
}

// NotesPlaying returns the sounding notes in a stable order.
func (t *noteTracker) NotesPlaying() []key {
	var keys []key
	for k := range t.activeNotes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, keyCompare)
	return keys
}

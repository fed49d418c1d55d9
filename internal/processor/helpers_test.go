package processor_test

import (
	"testing"

	"github.com/divVerent/staffmerger/internal/document"
	"github.com/divVerent/staffmerger/internal/score"
)

func rest(pos, dur score.Ticks) score.Entry {
	return score.Entry{Position: pos, ActualDuration: dur, NominalDuration: dur}
}

func note(pos, dur score.Ticks, pitches ...score.Pitch) score.Entry {
	return score.Entry{Position: pos, ActualDuration: dur, NominalDuration: dur, IsNote: true, Pitches: pitches}
}

func timeline(length score.Ticks, entries ...score.Entry) *score.Timeline {
	t := score.New(score.Address{Staff: 1, Slot: 1, Measure: 1}, length)
	t.Entries = entries
	return t
}

// newDoc returns a document of one 4/4 measure with the given number of
// staffs.
func newDoc(t *testing.T, staffs int) *document.Memory {
	t.Helper()
	return newDocWith(t, staffs, score.TimeSig{Num: 4, Denom: 4})
}

func newDocWith(t *testing.T, staffs int, sigs ...score.TimeSig) *document.Memory {
	t.Helper()
	m, err := document.NewMemory(sigs)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < staffs; i++ {
		if _, err := m.AppendStaff(); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func set(t *testing.T, m *document.Memory, staff score.StaffID, slot score.VoiceSlot, entries ...score.Entry) *score.Timeline {
	t.Helper()
	tl := score.New(score.Address{Staff: staff, Slot: slot, Measure: 1}, score.TicksPerWhole)
	tl.Entries = entries
	if err := m.SetTimeline(tl); err != nil {
		t.Fatal(err)
	}
	return tl
}

func get(t *testing.T, m *document.Memory, staff score.StaffID, slot score.VoiceSlot) *score.Timeline {
	t.Helper()
	tl, err := m.LoadTimeline(staff, slot, 1)
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

func setAt(t *testing.T, m *document.Memory, staff score.StaffID, slot score.VoiceSlot, measure int, entries ...score.Entry) *score.Timeline {
	t.Helper()
	bars, _ := m.Bars()
	tl := score.New(score.Address{Staff: staff, Slot: slot, Measure: measure}, bars[measure-1].Length())
	tl.Entries = entries
	if err := m.SetTimeline(tl); err != nil {
		t.Fatal(err)
	}
	return tl
}

func getAt(t *testing.T, m *document.Memory, staff score.StaffID, slot score.VoiceSlot, measure int) *score.Timeline {
	t.Helper()
	tl, err := m.LoadTimeline(staff, slot, measure)
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

// recorder logs the addresses written.
type recorder struct {
	*document.Memory
	saved []score.Address
}

func (r *recorder) SaveTimeline(t *score.Timeline) error {
	r.saved = append(r.saved, t.Address)
	return r.Memory.SaveTimeline(t)
}

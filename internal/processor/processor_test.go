package processor_test

import (
	"errors"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/staffmerger/internal/processor"
	"github.com/divVerent/staffmerger/internal/score"
)

func TestMergeIntervals(t *testing.T) {
	in := []processor.Interval{{5, 8}, {0, 2}, {1, 3}, {7, 9}, {3, 4}}
	want := []processor.Interval{{0, 3}, {3, 4}, {5, 9}}
	if got := processor.MergeIntervals(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := processor.MergeIntervals(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestSelectBase(t *testing.T) {
	plain := timeline(4, note(0, 4, 60))
	tup := timeline(4, note(0, 1, 60), note(1, 1, 62), rest(2, 2))
	tup.Tuplets = []score.Tuplet{{ID: 1, Start: 0, Reference: 2}}
	if got := processor.SelectBase([][]*score.Timeline{{plain}, {tup}}); got != 1 {
		t.Fatalf("SelectBase = %d, want 1", got)
	}
	// Ties go to the first source.
	if got := processor.SelectBase([][]*score.Timeline{{plain}, {plain}}); got != 0 {
		t.Fatalf("SelectBase = %d, want 0", got)
	}
	// Counts add up over the measure range.
	if got := processor.SelectBase([][]*score.Timeline{{tup, plain}, {plain, tup.Clone(), tup.Clone()}}); got != 1 {
		t.Fatalf("SelectBase = %d, want 1", got)
	}
}

func TestRelocate(t *testing.T) {
	src := timeline(4, note(0, 2, 60), rest(2, 2))
	src.Entries[0].Modifiers = score.Modifiers{
		Articulations:     []score.Articulation{{Def: 1}, {Def: 1}, {Def: 2}},
		NoteheadOverrides: []score.NoteheadOverride{{Pitch: 61, Shape: "x"}},
		Expressions:       []score.Expression{{Offset: 1, Payload: score.ScalarPayload("f")}, {Offset: 2, Payload: score.ScalarPayload("p")}},
	}
	if got := processor.Relocate(src, src.Address); got != src {
		t.Fatalf("relocating in place should not copy")
	}
	dst := score.Address{Staff: 2, Slot: 3, Measure: 1}
	got := processor.Relocate(src, dst)
	if got.Address != dst || got.ID == src.ID {
		t.Fatalf("relocated to %v with id %v", got.Address, got.ID)
	}
	mods := got.Entries[0].Modifiers
	if !reflect.DeepEqual(mods.Articulations, []score.Articulation{{Def: 1}, {Def: 2}}) {
		t.Fatalf("articulations = %v", mods.Articulations)
	}
	if len(mods.NoteheadOverrides) != 0 {
		t.Fatalf("noteheads = %v", mods.NoteheadOverrides)
	}
	if len(mods.Expressions) != 1 || mods.Expressions[0].Offset != 1 {
		t.Fatalf("expressions = %v", mods.Expressions)
	}
	if len(src.Entries[0].Modifiers.Articulations) != 3 {
		t.Fatalf("source modifiers changed")
	}
}

func TestMergeConfig(t *testing.T) {
	no := false
	got := processor.Config{
		AutoClearUnassignedSlots: &no,
		MIDI: processor.MIDIConfig{
			BPM:      90,
			Channels: map[score.VoiceSlot]uint8{2: 9},
		},
	}.WithDefaults()
	if got.AutoClearUnassignedSlots == nil || *got.AutoClearUnassignedSlots {
		t.Fatalf("explicit false was lost")
	}
	if got.ClearConsumedSources == nil || !*got.ClearConsumedSources {
		t.Fatalf("default was lost")
	}
	if got.MIDI.BPM != 90 || got.MIDI.Resolution != 960 {
		t.Fatalf("MIDI = %+v", got.MIDI)
	}
	want := map[score.VoiceSlot]uint8{1: 0, 2: 9, 3: 2, 4: 3}
	if !reflect.DeepEqual(got.MIDI.Channels, want) {
		t.Fatalf("channels = %v, want %v", got.MIDI.Channels, want)
	}

	task := &processor.MergeTask{}
	got.ApplyTo(task)
	if task.AutoClearUnassignedSlots == nil || *task.AutoClearUnassignedSlots {
		t.Fatalf("task did not inherit the setting")
	}
	yes := true
	task = &processor.MergeTask{AutoClearUnassignedSlots: &yes}
	got.ApplyTo(task)
	if !*task.AutoClearUnassignedSlots {
		t.Fatalf("task setting was overridden")
	}
}

func TestForEachEntryWithTime(t *testing.T) {
	m := newDoc(t, 1)
	set(t, m, 1, 2, rest(0, 1024), note(1024, 1024, 60), note(2048, 2048, 62))
	var times []score.Ticks
	err := processor.ForEachEntryWithTime(m, score.Location{Staff: 1, Slot: 2}, processor.MeasureRange{Start: 1, End: 1},
		func(time score.Ticks, measure int, e *score.Entry) error {
			times = append(times, time)
			if e.IsNote {
				return processor.StopIteration
			}
			return nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(times, []score.Ticks{0, 1024}) {
		t.Fatalf("times = %v", times)
	}

	boom := errors.New("boom")
	err = processor.ForEachEntryWithTime(m, score.Location{Staff: 1, Slot: 2}, processor.MeasureRange{Start: 1, End: 1},
		func(score.Ticks, int, *score.Entry) error {
			return boom
		})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	entries, notes, err := processor.CountEntries(m, score.Location{Staff: 1, Slot: 2}, processor.MeasureRange{Start: 1, End: 1})
	if err != nil {
		t.Fatal(err)
	}
	if entries != 3 || notes != 2 {
		t.Fatalf("CountEntries = %d, %d; want 3, 2", entries, notes)
	}
}

type noteAt struct {
	tick uint32
	key  uint8
	on   bool
}

func TestExportMIDI(t *testing.T) {
	m := newDoc(t, 1)
	set(t, m, 1, 1, note(0, 1024, 60), rest(1024, 1024), note(2048, 2048, 60))
	set(t, m, 1, 3, rest(0, 2048), note(2048, 2048, 67))
	out, err := processor.ExportMIDI(m, 1, processor.MeasureRange{Start: 1, End: 1}, processor.DefaultConfig().MIDI, "Flute")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Tracks) != 5 {
		t.Fatalf("got %d tracks, want 5", len(out.Tracks))
	}
	notes := func(track smf.Track) []noteAt {
		var got []noteAt
		var tick uint32
		for _, ev := range track {
			tick += ev.Delta
			var ch, key, vel uint8
			if ev.Message.GetNoteStart(&ch, &key, &vel) {
				got = append(got, noteAt{tick, key, true})
			} else if ev.Message.GetNoteEnd(&ch, &key) {
				got = append(got, noteAt{tick, key, false})
			}
		}
		return got
	}
	want := []noteAt{{0, 60, true}, {960, 60, false}, {1920, 60, true}, {3840, 60, false}}
	if got := notes(out.Tracks[1]); !reflect.DeepEqual(got, want) {
		t.Fatalf("layer 1 = %v, want %v", got, want)
	}
	want = []noteAt{{1920, 67, true}, {3840, 67, false}}
	if got := notes(out.Tracks[3]); !reflect.DeepEqual(got, want) {
		t.Fatalf("layer 3 = %v, want %v", got, want)
	}
	if got := notes(out.Tracks[2]); len(got) != 0 {
		t.Fatalf("layer 2 = %v, want nothing", got)
	}
	var bpm float64
	found := false
	for _, ev := range out.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm != 120 {
		t.Fatalf("tempo = %v, %v", bpm, found)
	}
}

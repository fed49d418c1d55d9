package score_test

import (
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

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

func TestValidate(t *testing.T) {
	good := timeline(4, rest(0, 2), note(2, 1, 60), rest(3, 1))
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gap := timeline(4, rest(0, 2), note(3, 1, 60))
	if err := gap.Validate(); !errors.Is(err, score.ErrNotContiguous) {
		t.Fatalf("got %v, want ErrNotContiguous", err)
	}
	short := timeline(4, rest(0, 2))
	if err := short.Validate(); !errors.Is(err, score.ErrNotContiguous) {
		t.Fatalf("got %v, want ErrNotContiguous", err)
	}
	empty := timeline(4)
	if err := empty.Validate(); err != nil {
		t.Fatalf("empty timeline should be valid, got %v", err)
	}
}

func TestFindAndPreceding(t *testing.T) {
	tl := timeline(4, rest(0, 2), note(2, 1, 60), rest(3, 1))
	if i, ok := tl.Find(2); !ok || i != 1 {
		t.Fatalf("Find(2) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := tl.Find(1); ok {
		t.Fatalf("Find(1) should not match")
	}
	if got := tl.Preceding(1); got != 0 {
		t.Fatalf("Preceding(1) = %d, want 0", got)
	}
	if got := tl.Preceding(0); got != -1 {
		t.Fatalf("Preceding(0) = %d, want -1", got)
	}
	if got := tl.Preceding(4); got != 2 {
		t.Fatalf("Preceding(4) = %d, want 2", got)
	}
}

func TestInsertAfterAndDeleteNull(t *testing.T) {
	tl := timeline(4, rest(0, 4))
	tl.SetDuration(0, 1)
	tl.InsertAfter(0, note(1, 3, 62))
	tl.InsertAfter(1, rest(4, 0))
	if n := tl.DeleteNullEntries(); n != 1 {
		t.Fatalf("deleted %d null entries, want 1", n)
	}
	want := []score.Entry{rest(0, 1), note(1, 3, 62)}
	if !reflect.DeepEqual(tl.Entries, want) {
		t.Fatalf("got %v, want %v", tl.Entries, want)
	}
	if err := tl.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSetDurationScalesNominal(t *testing.T) {
	// Triplet eighth: sounds 2/3 of its written value.
	e := score.Entry{ActualDuration: 341, NominalDuration: 512}
	tl := timeline(341, e)
	tl.SetDuration(0, 682)
	if got := tl.Entries[0].NominalDuration; got != 1024 {
		t.Fatalf("nominal = %d, want 1024", got)
	}
}

func TestRebar(t *testing.T) {
	tl := timeline(4, note(0, 3, 60), note(2, 3, 62))
	if !tl.Rebar() {
		t.Fatalf("Rebar reported no change")
	}
	want := []score.Entry{note(0, 3, 60), note(3, 1, 62)}
	if !reflect.DeepEqual(tl.Entries, want) {
		t.Fatalf("got %v, want %v", tl.Entries, want)
	}

	tl = timeline(4, note(0, 1, 60))
	tl.Rebar()
	want = []score.Entry{note(0, 1, 60), rest(1, 3)}
	if !reflect.DeepEqual(tl.Entries, want) {
		t.Fatalf("got %v, want %v", tl.Entries, want)
	}

	tl = timeline(4, rest(0, 2), note(2, 2, 60))
	if tl.Rebar() {
		t.Fatalf("Rebar changed a well-formed timeline: %v", tl.Entries)
	}
}

func TestTupletMembership(t *testing.T) {
	tl := timeline(1024,
		score.Entry{Position: 0, ActualDuration: 512, NominalDuration: 512},
		score.Entry{Position: 512, ActualDuration: 171, NominalDuration: 256, IsStartOfTuplet: true, TupletRefs: []score.TupletID{1}},
		score.Entry{Position: 683, ActualDuration: 171, NominalDuration: 256, TupletRefs: []score.TupletID{1}},
		score.Entry{Position: 854, ActualDuration: 170, NominalDuration: 256, TupletRefs: []score.TupletID{1}},
	)
	tl.Tuplets = []score.Tuplet{{ID: 1, Start: 512, Reference: 512, Num: 3, Denom: 2}}
	if tl.IsPartOfTuplet(0) {
		t.Fatalf("entry 0 should not be part of the tuplet")
	}
	if got := tl.TupletEntries(); got != 3 {
		t.Fatalf("TupletEntries = %d, want 3", got)
	}
}

func TestCloneToChangesID(t *testing.T) {
	tl := timeline(4, note(0, 4, 60))
	tl.Entries[0].Modifiers.Articulations = []score.Articulation{{Def: 3}}
	c := tl.CloneTo(score.Address{Staff: 2, Slot: 3, Measure: 1})
	if c.ID == tl.ID {
		t.Fatalf("clone kept storage id")
	}
	c.Entries[0].Pitches[0] = 61
	c.Entries[0].Modifiers.Articulations[0].Def = 4
	if tl.Entries[0].Pitches[0] != 60 || tl.Entries[0].Modifiers.Articulations[0].Def != 3 {
		t.Fatalf("clone is not deep")
	}
}

func TestPayloadYAML(t *testing.T) {
	var xs []score.Expression
	in := `
- offset: 0
  payload: pizz.
- offset: 256
  payload:
    text: cresc.
    placement: below
`
	if err := yaml.Unmarshal([]byte(in), &xs); err != nil {
		t.Fatal(err)
	}
	if xs[0].Payload.IsStructured() || xs[0].Payload.Scalar != "pizz." {
		t.Fatalf("got %+v, want scalar pizz.", xs[0].Payload)
	}
	want := map[string]string{"text": "cresc.", "placement": "below"}
	if !xs[1].Payload.IsStructured() || !reflect.DeepEqual(xs[1].Payload.Structured, want) {
		t.Fatalf("got %+v, want %v", xs[1].Payload, want)
	}
	out, err := yaml.Marshal(xs)
	if err != nil {
		t.Fatal(err)
	}
	var again []score.Expression
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if !again[0].Payload.Equal(xs[0].Payload) || !again[1].Payload.Equal(xs[1].Payload) {
		t.Fatalf("payloads changed through YAML: %+v", again)
	}
}

func TestTransferModifiers(t *testing.T) {
	dst := note(0, 2, 60, 64)
	src := score.Modifiers{
		Articulations:     []score.Articulation{{Def: 1}, {Def: 2}},
		NoteheadOverrides: []score.NoteheadOverride{{Pitch: 64, Shape: "x"}, {Pitch: 67, Shape: "diamond"}},
		Expressions:       []score.Expression{{Offset: 1, Payload: score.ScalarPayload("f")}, {Offset: 5, Payload: score.ScalarPayload("p")}},
	}
	dst.Modifiers.Articulations = []score.Articulation{{Def: 2}}
	dst.Modifiers.Transfer(src, &dst)
	if got := dst.Modifiers.Articulations; !reflect.DeepEqual(got, []score.Articulation{{Def: 2}, {Def: 1}}) {
		t.Fatalf("articulations = %v", got)
	}
	if got := dst.Modifiers.NoteheadOverrides; !reflect.DeepEqual(got, []score.NoteheadOverride{{Pitch: 64, Shape: "x"}}) {
		t.Fatalf("noteheads = %v", got)
	}
	if got := len(dst.Modifiers.Expressions); got != 1 {
		t.Fatalf("got %d expressions, want 1", got)
	}
}

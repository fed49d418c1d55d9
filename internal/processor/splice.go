package processor

import (
	"fmt"
	"slices"

	"github.com/divVerent/staffmerger/internal/score"
)

// MergeTimelines merges the entries of other into base and returns base.
// Entries at a position base already has an entry at are combined with it,
// notes at other positions are spliced in by splitting the base entry they
// fall into. Rests of other only contribute their modifiers.
func MergeTimelines(base, other *score.Timeline) (*score.Timeline, error) {
	if other == base || other.IsEmpty() {
		return base, nil
	}
	if base.IsEmpty() && other.HasNotes() {
		base.Entries = []score.Entry{{
			ActualDuration:  base.Length,
			NominalDuration: base.Length,
		}}
	}
	for _, e := range other.Entries {
		if err := mergeEntry(base, e); err != nil {
			return nil, err
		}
		base.DeleteNullEntries()
	}
	base.Rebar()
	return base, nil
}

func mergeEntry(base *score.Timeline, e score.Entry) error {
	if i, found := base.Find(e.Position); found {
		combine(base, i, e)
		return nil
	}
	if e.IsRest() {
		return nil
	}
	return splice(base, e)
}

// combine merges e into the base entry i starting at the same position.
func combine(base *score.Timeline, i int, e score.Entry) {
	d := &base.Entries[i]
	wasRest := d.IsRest()
	if e.IsNote {
		d.AddPitches(e.Pitches...)
		switch {
		case e.ActualDuration > d.ActualDuration:
			absorb(base, i, e.ActualDuration-d.ActualDuration)
		case e.ActualDuration < d.ActualDuration && wasRest:
			splitAt(base, i, e.ActualDuration)
		}
	}
	d = &base.Entries[i]
	d.Modifiers.Transfer(e.Modifiers, d)
}

// absorb grows entry i by consuming whole rests following it until excess
// is used up. A rest longer than what is left is not shortened.
func absorb(base *score.Timeline, i int, excess score.Ticks) {
	for j := i + 1; excess > 0 && j < len(base.Entries); j++ {
		r := &base.Entries[j]
		if r.IsNote || r.ActualDuration > excess {
			break
		}
		d := &base.Entries[i]
		shift := r.Position - d.Position
		excess -= r.ActualDuration
		d.ActualDuration += r.ActualDuration
		d.NominalDuration += r.NominalDuration
		d.Modifiers.Transfer(shifted(r.Modifiers, shift), d)
		r.ActualDuration = 0
		r.NominalDuration = 0
	}
	base.DeleteNullEntries()
}

func shifted(m score.Modifiers, by score.Ticks) score.Modifiers {
	m = m.Clone()
	for i := range m.Expressions {
		m.Expressions[i].Offset += by
	}
	return m
}

// splitAt shortens entry i to keep ticks; the remainder becomes a rest
// following it.
func splitAt(base *score.Timeline, i int, keep score.Ticks) {
	e := base.Entries[i]
	if keep <= 0 || keep >= e.ActualDuration {
		return
	}
	tail := score.Entry{
		Position:        e.Position + keep,
		ActualDuration:  e.ActualDuration - keep,
		NominalDuration: e.Scaled(e.ActualDuration - keep),
		TupletRefs:      slices.Clone(e.TupletRefs),
	}
	base.SetDuration(i, keep)
	base.InsertAfter(i, tail)
	moveExpressions(base, i, keep)
}

// moveExpressions hands the expressions of entry i at or after offset at
// over to entry i+1, which must start at that offset.
func moveExpressions(base *score.Timeline, i int, at score.Ticks) {
	src := &base.Entries[i]
	var keep []score.Expression
	for _, x := range src.Modifiers.Expressions {
		if x.Offset < at {
			keep = append(keep, x)
			continue
		}
		x.Offset -= at
		next := &base.Entries[i+1]
		next.Modifiers.Expressions = append(next.Modifiers.Expressions, x)
	}
	src.Modifiers.Expressions = keep
}

// splice inserts note e into base at a position no base entry starts at.
// The base entry c containing the position is cut there; the inserted
// entry lasts as long as e if c leaves room, and c resumes after it.
func splice(base *score.Timeline, e score.Entry) error {
	c := base.Preceding(e.Position)
	if c < 0 || e.Position >= base.Length {
		return fmt.Errorf("%w: %v at %d in %v", ErrInvalidSpliceAnchor, e, e.Position, base.Address)
	}
	ce := base.Entries[c]
	end := ce.End()
	base.SetDuration(c, e.Position-ce.Position)
	base.InsertAfter(c, score.Entry{
		Position:        e.Position,
		ActualDuration:  end - e.Position,
		NominalDuration: ce.Scaled(end - e.Position),
		IsNote:          true,
		Pitches:         slices.Clone(e.Pitches),
		TupletRefs:      slices.Clone(ce.TupletRefs),
	})
	moveExpressions(base, c, e.Position-ce.Position)
	n := c + 1
	switch room := end - e.Position; {
	case e.ActualDuration < room:
		resume := e.Position + e.ActualDuration
		base.SetDuration(n, e.ActualDuration)
		base.InsertAfter(n, score.Entry{
			Position:        resume,
			ActualDuration:  end - resume,
			NominalDuration: ce.Scaled(end - resume),
			IsNote:          ce.IsNote,
			Pitches:         slices.Clone(ce.Pitches),
			TupletRefs:      slices.Clone(ce.TupletRefs),
		})
		moveExpressions(base, n, e.ActualDuration)
	case e.ActualDuration > room:
		absorb(base, n, e.ActualDuration-room)
	}
	ne := &base.Entries[n]
	ne.Modifiers.Transfer(e.Modifiers, ne)
	return nil
}

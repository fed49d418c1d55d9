package processor

import (
	"github.com/divVerent/staffmerger/internal/score"
)

// Relocate returns src addressed at dst. If src already lives there, it is
// returned as is. Otherwise the entries are cloned into a new timeline and
// their modifiers transferred: duplicate articulations are dropped,
// notehead overrides are kept for pitches the entry has, and expressions
// are kept if they lie within the entry.
func Relocate(src *score.Timeline, dst score.Address) *score.Timeline {
	if src.Address == dst {
		return src
	}
	out := score.New(dst, src.Length)
	out.Tuplets = append(out.Tuplets, src.Tuplets...)
	out.Entries = make([]score.Entry, 0, len(src.Entries))
	for _, e := range src.Entries {
		mods := e.Modifiers
		e = e.Clone()
		e.Modifiers = score.Modifiers{}
		e.Modifiers.Transfer(mods, &e)
		out.Entries = append(out.Entries, e)
	}
	return out
}

package processor

import (
	"log"

	"github.com/divVerent/staffmerger/internal/score"
)

// DumpTimeline logs the entries of a timeline in concise form.
func DumpTimeline(prefix string, t *score.Timeline) {
	if t.IsEmpty() {
		log.Printf("%s: %v: empty.", prefix, t.Address)
		return
	}
	log.Printf("%s: %v: %d entries, length %d.", prefix, t.Address, len(t.Entries), t.Length)
	for _, tu := range t.Tuplets {
		num, denom := score.Ratio(int64(tu.Num), int64(tu.Denom))
		log.Printf("%s:   tuplet %d: %d:%d from %d to %d.", prefix, tu.ID, num, denom, tu.Start, tu.End())
	}
	for i, e := range t.Entries {
		extra := ""
		if t.IsPartOfTuplet(i) {
			extra = " (tuplet)"
		}
		if !e.Modifiers.IsZero() {
			log.Printf("%s:   %v%s, %d articulation(s), %d notehead(s), %d expression(s).", prefix, e, extra,
				len(e.Modifiers.Articulations), len(e.Modifiers.NoteheadOverrides), len(e.Modifiers.Expressions))
			continue
		}
		log.Printf("%s:   %v%s.", prefix, e, extra)
	}
}

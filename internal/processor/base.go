package processor

import (
	"fmt"
	"log"

	"github.com/divVerent/staffmerger/internal/score"
)

// SelectBase picks the source acting as rhythmic skeleton: the one with
// the most entries inside tuplets over the whole measure range. Ties go to
// the earlier source. sources[i][j] is source i in the j-th measure.
func SelectBase(sources [][]*score.Timeline) int {
	best, bestCount := 0, -1
	for i, measures := range sources {
		count := 0
		for _, t := range measures {
			count += t.TupletEntries()
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

// checkTuplets verifies that every tuplet entry of other starts where some
// entry of base starts. A vacant base counts as a whole-measure rest.
func checkTuplets(base, other *score.Timeline) error {
	for i, e := range other.Entries {
		if !other.IsPartOfTuplet(i) {
			continue
		}
		if base.IsEmpty() {
			if e.Position == 0 {
				continue
			}
			return fmt.Errorf("%w: tuplet entry at %d of %v has no counterpart in vacant %v", ErrMismatchedTuplets, e.Position, other.Address, base.Address)
		}
		if _, found := base.Find(e.Position); !found {
			return fmt.Errorf("%w: tuplet entry at %d of %v has no counterpart in %v", ErrMismatchedTuplets, e.Position, other.Address, base.Address)
		}
	}
	return nil
}

// validateTuplets checks all non-base sources of one measure against the
// base. The coalesced tuplet runs are only logged.
func validateTuplets(timelines []*score.Timeline, base int) error {
	runs := MergeIntervals(tupletIntervals(timelines...))
	if len(runs) > 0 {
		log.Printf("measure %d: %d tuplet run(s) over %d source(s): %v.", timelines[base].Address.Measure, len(runs), len(timelines), runs)
	}
	for i, t := range timelines {
		if i == base {
			continue
		}
		if err := checkTuplets(timelines[base], t); err != nil {
			return err
		}
	}
	return nil
}

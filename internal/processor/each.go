package processor

import (
	"errors"
	"fmt"

	"github.com/divVerent/staffmerger/internal/score"
)

// StopIteration can be returned to return without failure.
var StopIteration = errors.New("ForEachEntryWithTime: StopIteration")

// ForEachEntryWithTime runs the given function for each entry of a layer
// over a measure range, with the absolute time of the entry.
func ForEachEntryWithTime(doc Document, loc score.Location, measures MeasureRange, yield func(time score.Ticks, measure int, e *score.Entry) error) error {
	bars, err := doc.Bars()
	if err != nil {
		return fmt.Errorf("could not read measures: %w", err)
	}
	for _, m := range measures.Measures() {
		if _, ok := bars.Bar(m); !ok {
			return fmt.Errorf("measure %d out of range", m)
		}
		t, err := doc.LoadTimeline(loc.Staff, loc.Slot, m)
		if err != nil {
			return fmt.Errorf("could not load %v measure %d: %w", loc, m, err)
		}
		for i := range t.Entries {
			err := yield(bars.ToTick(m, t.Entries[i].Position), m, &t.Entries[i])
			if errors.Is(err, StopIteration) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// CountEntries counts the entries and notes of a layer over a range.
func CountEntries(doc Document, loc score.Location, measures MeasureRange) (entries, notes int, err error) {
	err = ForEachEntryWithTime(doc, loc, measures, func(time score.Ticks, measure int, e *score.Entry) error {
		entries++
		if e.IsNote {
			notes++
		}
		return nil
	})
	return entries, notes, err
}

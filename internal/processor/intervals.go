package processor

import (
	"slices"

	"github.com/divVerent/staffmerger/internal/score"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start, End score.Ticks
}

// MergeIntervals coalesces overlapping intervals into disjoint runs,
// sorted by start.
func MergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		if a.Start < b.Start {
			return -1
		}
		if a.Start > b.Start {
			return +1
		}
		return 0
	})
	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		run := &out[len(out)-1]
		if iv.Start < run.End {
			if iv.End > run.End {
				run.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// tupletIntervals returns the spans of all tuplets of the given timelines.
func tupletIntervals(ts ...*score.Timeline) []Interval {
	var out []Interval
	for _, t := range ts {
		for _, tu := range t.Tuplets {
			out = append(out, Interval{Start: tu.Start, End: tu.End()})
		}
	}
	return out
}

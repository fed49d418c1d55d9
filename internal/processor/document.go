package processor

import (
	"github.com/divVerent/staffmerger/internal/score"
)

// Document is the host document the engine reads from and writes to. All
// mutation performed by the engine goes through it.
type Document interface {
	// Bars returns the measure layout of the document.
	Bars() (score.Bars, error)
	// LoadTimeline returns the contents of one layer of one staff in one
	// measure. A vacant layer yields an empty timeline.
	LoadTimeline(staff score.StaffID, slot score.VoiceSlot, measure int) (*score.Timeline, error)
	// SaveTimeline writes t back to its address, replacing what is there.
	SaveTimeline(t *score.Timeline) error
	// AppendStaff adds an empty staff and returns its id.
	AppendStaff() (score.StaffID, error)
	DeleteStaff(staff score.StaffID) error
	// RebarMeasure redistributes the entries of all layers of the staff in
	// the given measure.
	RebarMeasure(staff score.StaffID, measure int) error
}

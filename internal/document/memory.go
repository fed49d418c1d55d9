// Package document holds implementations of the host document the
// consolidation engine works on.
package document

import (
	"fmt"
	"slices"

	"github.com/divVerent/staffmerger/internal/score"
)

type cell struct {
	slot    score.VoiceSlot
	measure int
}

// Staff is one staff of an in-memory document.
type Staff struct {
	ID    score.StaffID
	Name  string
	cells map[cell]*score.Timeline
}

// Memory is a document held entirely in memory.
type Memory struct {
	bars   score.Bars
	staffs []*Staff
}

// NewMemory returns a document without staffs and with one measure per
// time signature.
func NewMemory(sigs []score.TimeSig) (*Memory, error) {
	bars, err := score.NewBars(sigs)
	if err != nil {
		return nil, err
	}
	return &Memory{bars: bars}, nil
}

func (m *Memory) Bars() (score.Bars, error) {
	return m.bars, nil
}

func (m *Memory) NumMeasures() int {
	return len(m.bars)
}

// Staffs returns the staff ids in document order.
func (m *Memory) Staffs() []score.StaffID {
	out := make([]score.StaffID, 0, len(m.staffs))
	for _, s := range m.staffs {
		out = append(out, s.ID)
	}
	return out
}

// Staff returns the staff with the given id.
func (m *Memory) Staff(id score.StaffID) (*Staff, bool) {
	i := slices.IndexFunc(m.staffs, func(s *Staff) bool {
		return s.ID == id
	})
	if i < 0 {
		return nil, false
	}
	return m.staffs[i], true
}

func (m *Memory) nextID() score.StaffID {
	var id score.StaffID
	for _, s := range m.staffs {
		id = max(id, s.ID)
	}
	return id + 1
}

// AddStaff appends a named staff. An id of 0 picks the next free one.
func (m *Memory) AddStaff(id score.StaffID, name string) (score.StaffID, error) {
	if id == 0 {
		id = m.nextID()
	}
	if _, found := m.Staff(id); found {
		return 0, fmt.Errorf("staff %d already exists", id)
	}
	m.staffs = append(m.staffs, &Staff{ID: id, Name: name, cells: map[cell]*score.Timeline{}})
	return id, nil
}

func (m *Memory) AppendStaff() (score.StaffID, error) {
	return m.AddStaff(0, "")
}

func (m *Memory) DeleteStaff(id score.StaffID) error {
	n := len(m.staffs)
	m.staffs = slices.DeleteFunc(m.staffs, func(s *Staff) bool {
		return s.ID == id
	})
	if len(m.staffs) == n {
		return fmt.Errorf("no staff %d", id)
	}
	return nil
}

func (m *Memory) check(staff score.StaffID, slot score.VoiceSlot, measure int) (*Staff, score.Bar, error) {
	s, found := m.Staff(staff)
	if !found {
		return nil, score.Bar{}, fmt.Errorf("no staff %d", staff)
	}
	if !slot.Valid() {
		return nil, score.Bar{}, fmt.Errorf("invalid layer %d", slot)
	}
	bar, ok := m.bars.Bar(measure)
	if !ok {
		return nil, score.Bar{}, fmt.Errorf("no measure %d", measure)
	}
	return s, bar, nil
}

func (m *Memory) LoadTimeline(staff score.StaffID, slot score.VoiceSlot, measure int) (*score.Timeline, error) {
	s, bar, err := m.check(staff, slot, measure)
	if err != nil {
		return nil, err
	}
	if t, found := s.cells[cell{slot, measure}]; found {
		return t.Clone(), nil
	}
	return score.New(score.Address{Staff: staff, Slot: slot, Measure: measure}, bar.Length()), nil
}

func (m *Memory) SaveTimeline(t *score.Timeline) error {
	s, bar, err := m.check(t.Address.Staff, t.Address.Slot, t.Address.Measure)
	if err != nil {
		return err
	}
	if t.Length != bar.Length() {
		return fmt.Errorf("%v: length %d does not match measure length %d", t.Address, t.Length, bar.Length())
	}
	if err := t.Validate(); err != nil {
		return err
	}
	c := cell{t.Address.Slot, t.Address.Measure}
	if t.IsEmpty() {
		delete(s.cells, c)
		return nil
	}
	s.cells[c] = t.Clone()
	return nil
}

// SetTimeline is SaveTimeline for building documents.
func (m *Memory) SetTimeline(t *score.Timeline) error {
	return m.SaveTimeline(t)
}

func (m *Memory) RebarMeasure(staff score.StaffID, measure int) error {
	s, _, err := m.check(staff, score.FirstSlot, measure)
	if err != nil {
		return err
	}
	for _, slot := range score.Slots() {
		if t, found := s.cells[cell{slot, measure}]; found {
			t.Rebar()
		}
	}
	return nil
}

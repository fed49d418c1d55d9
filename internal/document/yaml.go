package document

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/divVerent/staffmerger/internal/score"
)

type fileDoc struct {
	Measures []score.TimeSig `yaml:"measures"`
	Staffs   []fileStaff     `yaml:"staffs"`
}

type fileStaff struct {
	ID     score.StaffID `yaml:"id"`
	Name   string        `yaml:"name,omitempty"`
	Layers []fileLayer   `yaml:"layers,omitempty"`
}

type fileLayer struct {
	Slot    score.VoiceSlot `yaml:"layer,omitempty"`
	Measure int             `yaml:"measure,omitempty"`
	ID      string          `yaml:"id,omitempty"`
	Tuplets []score.Tuplet  `yaml:"tuplets,omitempty"`
	Entries []fileEntry     `yaml:"entries"`
}

// fileEntry stores an entry without its position, which follows from the
// durations of the entries before it.
type fileEntry struct {
	Duration        score.Ticks      `yaml:"dur"`
	Nominal         score.Ticks      `yaml:"nominal,omitempty"`
	Pitches         []score.Pitch    `yaml:"pitches,omitempty,flow"`
	Tuplets         []score.TupletID `yaml:"tuplets,omitempty,flow"`
	score.Modifiers `yaml:",inline"`
}

func toFileLayer(t *score.Timeline) fileLayer {
	l := fileLayer{
		Slot:    t.Address.Slot,
		Measure: t.Address.Measure,
		ID:      t.ID.String(),
		Tuplets: t.Tuplets,
	}
	for _, e := range t.Entries {
		fe := fileEntry{
			Duration:  e.ActualDuration,
			Pitches:   e.Pitches,
			Tuplets:   e.TupletRefs,
			Modifiers: e.Modifiers,
		}
		if e.NominalDuration != e.ActualDuration {
			fe.Nominal = e.NominalDuration
		}
		l.Entries = append(l.Entries, fe)
	}
	return l
}

// fromFileLayer builds the timeline at addr. A gap at the end of the
// measure is filled with a rest.
func fromFileLayer(l fileLayer, addr score.Address, length score.Ticks) (*score.Timeline, error) {
	t := score.New(addr, length)
	if l.ID != "" {
		id, err := uuid.Parse(l.ID)
		if err != nil {
			return nil, fmt.Errorf("%v: invalid id %q: %w", addr, l.ID, err)
		}
		t.ID = id
	}
	t.Tuplets = slices.Clone(l.Tuplets)
	for i, fe := range l.Entries {
		if fe.Duration <= 0 {
			return nil, fmt.Errorf("%v: entry %d has no duration", addr, i+1)
		}
		e := score.Entry{
			ActualDuration:  fe.Duration,
			NominalDuration: fe.Duration,
			IsNote:          len(fe.Pitches) > 0,
			TupletRefs:      fe.Tuplets,
			Modifiers:       fe.Modifiers,
		}
		if fe.Nominal != 0 {
			e.NominalDuration = fe.Nominal
		}
		e.AddPitches(fe.Pitches...)
		t.Entries = append(t.Entries, e)
	}
	if d := t.Duration(); d > length {
		return nil, fmt.Errorf("%v: entries last %d ticks, measure is %d", addr, d, length)
	} else if d < length && !t.IsEmpty() {
		t.Entries = append(t.Entries, score.Entry{ActualDuration: length - d, NominalDuration: length - d})
	}
	t.SetPositions()
	return t, nil
}

// Decode reads a YAML document.
func Decode(r io.Reader) (*Memory, error) {
	var f fileDoc
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode: %v", err)
	}
	m, err := NewMemory(f.Measures)
	if err != nil {
		return nil, err
	}
	for _, fs := range f.Staffs {
		id, err := m.AddStaff(fs.ID, fs.Name)
		if err != nil {
			return nil, err
		}
		for _, l := range fs.Layers {
			bar, ok := m.bars.Bar(l.Measure)
			if !ok {
				return nil, fmt.Errorf("staff %d: no measure %d", id, l.Measure)
			}
			t, err := fromFileLayer(l, score.Address{Staff: id, Slot: l.Slot, Measure: l.Measure}, bar.Length())
			if err != nil {
				return nil, err
			}
			if err := m.SetTimeline(t); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Encode writes m as YAML.
func Encode(w io.Writer, m *Memory) error {
	f := fileDoc{}
	for _, bar := range m.bars {
		f.Measures = append(f.Measures, bar.TimeSig)
	}
	for _, s := range m.staffs {
		fs := fileStaff{ID: s.ID, Name: s.Name}
		for _, measure := range m.bars {
			for _, slot := range score.Slots() {
				if t, found := s.cells[cell{slot, measure.Number}]; found {
					fs.Layers = append(fs.Layers, toFileLayer(t))
				}
			}
		}
		f.Staffs = append(f.Staffs, fs)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("could not encode: %v", err)
	}
	return enc.Close()
}

// marshalBody encodes the contents of a single timeline.
func marshalBody(t *score.Timeline) ([]byte, error) {
	l := toFileLayer(t)
	l.Slot, l.Measure, l.ID = 0, 0, ""
	return yaml.Marshal(l)
}

func unmarshalBody(data []byte, id string, addr score.Address, length score.Ticks) (*score.Timeline, error) {
	var l fileLayer
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%v: could not decode: %v", addr, err)
	}
	l.ID = id
	return fromFileLayer(l, addr, length)
}

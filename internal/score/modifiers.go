package score

import (
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ArticulationDef identifies an articulation definition (staccato,
// accent, ...) in the host document.
type ArticulationDef int

type Articulation struct {
	Def ArticulationDef `yaml:"def"`
}

// NoteheadOverride replaces the notehead of one pitch of a note.
type NoteheadOverride struct {
	Pitch Pitch  `yaml:"pitch"`
	Shape string `yaml:"shape"`
}

// Expression is a time-localized annotation attached to an entry. Offset
// is relative to the start of the entry it is attached to.
type Expression struct {
	Offset  Ticks   `yaml:"offset,omitempty"`
	Payload Payload `yaml:"payload"`
}

// Payload is either a bare scalar or a structured set of key/value pairs.
// The kind is fixed when decoding and never re-inspected afterwards.
type Payload struct {
	Scalar     string
	Structured map[string]string
}

func ScalarPayload(v string) Payload {
	return Payload{Scalar: v}
}

func StructuredPayload(m map[string]string) Payload {
	return Payload{Structured: m}
}

// IsStructured reports whether the payload holds key/value pairs.
func (p Payload) IsStructured() bool {
	return p.Structured != nil
}

func (p Payload) Clone() Payload {
	if p.Structured != nil {
		p.Structured = maps.Clone(p.Structured)
	}
	return p
}

func (p Payload) Equal(o Payload) bool {
	if p.IsStructured() != o.IsStructured() {
		return false
	}
	if p.IsStructured() {
		return maps.Equal(p.Structured, o.Structured)
	}
	return p.Scalar == o.Scalar
}

func (p Payload) String() string {
	if p.IsStructured() {
		return fmt.Sprintf("%v", p.Structured)
	}
	return p.Scalar
}

func (p Payload) MarshalYAML() (any, error) {
	if p.IsStructured() {
		return p.Structured, nil
	}
	return p.Scalar, nil
}

func (p *Payload) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = ScalarPayload(node.Value)
		return nil
	case yaml.MappingNode:
		m := map[string]string{}
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("could not decode structured payload: %w", err)
		}
		*p = StructuredPayload(m)
		return nil
	default:
		return fmt.Errorf("line %d: payload must be a scalar or a mapping", node.Line)
	}
}

// Modifiers holds the per-entry metadata carried along when entries are
// moved or merged.
type Modifiers struct {
	Articulations     []Articulation     `yaml:"articulations,omitempty"`
	NoteheadOverrides []NoteheadOverride `yaml:"noteheads,omitempty"`
	Expressions       []Expression       `yaml:"expressions,omitempty"`
}

func (m Modifiers) IsZero() bool {
	return len(m.Articulations) == 0 && len(m.NoteheadOverrides) == 0 && len(m.Expressions) == 0
}

func (m Modifiers) Clone() Modifiers {
	out := Modifiers{
		Articulations:     slices.Clone(m.Articulations),
		NoteheadOverrides: slices.Clone(m.NoteheadOverrides),
	}
	for _, x := range m.Expressions {
		out.Expressions = append(out.Expressions, Expression{Offset: x.Offset, Payload: x.Payload.Clone()})
	}
	return out
}

// DedupeArticulations keeps only the first articulation of each definition.
func (m *Modifiers) DedupeArticulations() int {
	seen := map[ArticulationDef]bool{}
	before := len(m.Articulations)
	m.Articulations = slices.DeleteFunc(m.Articulations, func(a Articulation) bool {
		if seen[a.Def] {
			return true
		}
		seen[a.Def] = true
		return false
	})
	return before - len(m.Articulations)
}

// Transfer copies the modifiers of src that are applicable to dst: every
// articulation (de-duplicated by definition), notehead overrides whose
// pitch exists on dst and is not overridden yet, and expressions that lie
// within dst's duration.
func (m *Modifiers) Transfer(src Modifiers, dst *Entry) {
	m.Articulations = append(m.Articulations, src.Articulations...)
	m.DedupeArticulations()
	for _, nh := range src.NoteheadOverrides {
		if !slices.Contains(dst.Pitches, nh.Pitch) {
			continue
		}
		if slices.ContainsFunc(m.NoteheadOverrides, func(o NoteheadOverride) bool {
			return o.Pitch == nh.Pitch
		}) {
			continue
		}
		m.NoteheadOverrides = append(m.NoteheadOverrides, nh)
	}
	for _, x := range src.Expressions {
		if x.Offset < 0 || x.Offset >= dst.ActualDuration {
			continue
		}
		if slices.ContainsFunc(m.Expressions, func(o Expression) bool {
			return o.Offset == x.Offset && o.Payload.Equal(x.Payload)
		}) {
			continue
		}
		m.Expressions = append(m.Expressions, Expression{Offset: x.Offset, Payload: x.Payload.Clone()})
	}
}

package score

import (
	"fmt"
)

// TimeSig is a time signature such as 3/4.
type TimeSig struct {
	Num   int `yaml:"num"`
	Denom int `yaml:"denom"`
}

func (s TimeSig) String() string {
	return fmt.Sprintf("%d/%d", s.Num, s.Denom)
}

// Length returns the nominal length of a measure in this time signature.
func (s TimeSig) Length() Ticks {
	return TicksPerWhole * Ticks(s.Num) / Ticks(s.Denom)
}

func (s TimeSig) Validate() error {
	if s.Num <= 0 || s.Denom <= 0 {
		return fmt.Errorf("invalid time signature %v", s)
	}
	if s.Denom&(s.Denom-1) != 0 {
		return fmt.Errorf("invalid time signature %v: denominator must be a power of two", s)
	}
	if (TicksPerWhole*Ticks(s.Num))%Ticks(s.Denom) != 0 {
		return fmt.Errorf("invalid time signature %v: not a whole number of ticks", s)
	}
	return nil
}

// Bar is one measure of the document. Measures are numbered from 1.
type Bar struct {
	Number int
	Begin  Ticks
	TimeSig
}

func (b Bar) Length() Ticks {
	return b.TimeSig.Length()
}

func (b Bar) End() Ticks {
	return b.Begin + b.Length()
}

// Bars is the measure layout of a document.
type Bars []Bar

// NewBars lays out consecutive measures with the given time signatures.
func NewBars(sigs []TimeSig) (Bars, error) {
	b := make(Bars, 0, len(sigs))
	var begin Ticks
	for i, sig := range sigs {
		if err := sig.Validate(); err != nil {
			return nil, fmt.Errorf("measure %d: %w", i+1, err)
		}
		b = append(b, Bar{Number: i + 1, Begin: begin, TimeSig: sig})
		begin += sig.Length()
	}
	return b, nil
}

// Bar returns the measure with the given 1-based number.
func (b Bars) Bar(measure int) (Bar, bool) {
	if measure < 1 || measure > len(b) {
		return Bar{}, false
	}
	return b[measure-1], true
}

// ToTick returns the absolute tick of offset within measure. The position
// right after the last measure is accepted.
func (b Bars) ToTick(measure int, offset Ticks) Ticks {
	if measure == len(b)+1 && offset == 0 && len(b) > 0 {
		return b[len(b)-1].End()
	}
	return b[measure-1].Begin + offset
}

// FromTick returns the measure number containing tick and the offset
// within it. Ticks past the end map into the last measure.
func (b Bars) FromTick(tick Ticks) (int, Ticks) {
	last := len(b) - 1
	for i, bar := range b {
		if i == last || tick < bar.End() {
			return bar.Number, tick - bar.Begin
		}
	}
	return 0, -1
}

// Signatures returns the runs of equal time signatures, as (first measure,
// signature) pairs.
func (b Bars) Signatures() []Bar {
	var out []Bar
	for _, bar := range b {
		if len(out) > 0 && out[len(out)-1].TimeSig == bar.TimeSig {
			continue
		}
		out = append(out, bar)
	}
	return out
}

func gcd(a, b int64) int64 {
	c := a % b
	if c == 0 {
		return b
	}
	return gcd(b, c)
}

// Ratio reduces num/denom to lowest terms.
func Ratio(num, denom int64) (int64, int64) {
	if num == 0 || denom == 0 {
		return num, denom
	}
	g := gcd(num, denom)
	if g < 0 {
		g = -g
	}
	return num / g, denom / g
}

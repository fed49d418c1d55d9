package processor

import (
	"cmp"
	"fmt"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/divVerent/staffmerger/internal/score"
)

type noteEvent struct {
	time  int64
	track int
	k     key
	on    bool
}

// metaText converts text to Latin-1, which is what most MIDI software
// expects in meta events.
func metaText(s string) string {
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return out
}

// ExportMIDI renders the layers of a staff over a measure range as a type
// 1 MIDI file: a conductor track with tempo and meter, then one track per
// layer.
func ExportMIDI(doc Document, staff score.StaffID, measures MeasureRange, cfg MIDIConfig, name string) (*smf.SMF, error) {
	bars, err := doc.Bars()
	if err != nil {
		return nil, fmt.Errorf("could not read measures: %w", err)
	}
	if measures.Start < 1 || measures.End > len(bars) || measures.End < measures.Start {
		return nil, fmt.Errorf("invalid %v for a document of %d measures", measures, len(bars))
	}
	if cfg.Resolution == 0 {
		return nil, fmt.Errorf("invalid MIDI resolution %d", cfg.Resolution)
	}
	num, denom := score.Ratio(int64(cfg.Resolution), int64(score.TicksPerQuarter))
	origin := bars.ToTick(measures.Start, 0)
	toMIDI := func(t score.Ticks) int64 {
		return int64(t-origin) * num / denom
	}

	var tracks []smf.Track
	var trackTimes []int64
	addEvent := func(t int, tick int64, msg smf.Message) {
		for t >= len(tracks) {
			tracks = append(tracks, nil)
			trackTimes = append(trackTimes, 0)
		}
		tracks[t] = append(tracks[t], smf.Event{
			Delta:   uint32(tick - trackTimes[t]),
			Message: msg,
		})
		trackTimes[t] = tick
	}

	addEvent(0, 0, smf.MetaTrackSequenceName(metaText(name)))
	addEvent(0, 0, smf.MetaTempo(cfg.BPM))
	sigs := bars.Signatures()
	for i, bar := range sigs {
		if bar.Number > measures.End {
			break
		}
		if i+1 < len(sigs) && sigs[i+1].Number <= measures.Start {
			continue
		}
		tick := max(bar.Begin, origin)
		addEvent(0, toMIDI(tick), smf.MetaMeter(uint8(bar.Num), uint8(bar.Denom)))
	}

	var events []noteEvent
	for i, slot := range score.Slots() {
		track := i + 1
		ch := cfg.Channels[slot]
		addEvent(track, 0, smf.MetaTrackSequenceName(metaText(fmt.Sprintf("%s layer %d", name, slot))))
		err := ForEachEntryWithTime(doc, score.Location{Staff: staff, Slot: slot}, measures, func(time score.Ticks, measure int, e *score.Entry) error {
			if !e.IsNote {
				return nil
			}
			for _, p := range e.Pitches {
				k := key{ch: ch, note: uint8(p)}
				events = append(events,
					noteEvent{time: toMIDI(time), track: track, k: k, on: true},
					noteEvent{time: toMIDI(time + e.ActualDuration), track: track, k: k, on: false})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	// At equal times, note ends go first so repeated notes restart.
	slices.SortStableFunc(events, func(a, b noteEvent) int {
		if c := cmp.Compare(a.time, b.time); c != 0 {
			return c
		}
		if a.on == b.on {
			return 0
		}
		if !a.on {
			return -1
		}
		return +1
	})
	tracker := newNoteTracker()
	for _, ev := range events {
		if ev.on {
			if tracker.Start(ev.k) {
				addEvent(ev.track, ev.time, smf.Message(midi.NoteOn(ev.k.ch, ev.k.note, cfg.Velocity)))
			}
			continue
		}
		if tracker.End(ev.k) {
			addEvent(ev.track, ev.time, smf.Message(midi.NoteOff(ev.k.ch, ev.k.note)))
		}
	}
	if tracker.Playing() {
		return nil, fmt.Errorf("notes still playing at the end: %v", tracker.NotesPlaying())
	}

	end := toMIDI(bars.ToTick(measures.End+1, 0))
	out := smf.NewSMF1()
	out.TimeFormat = smf.MetricTicks(cfg.Resolution)
	for i := range tracks {
		tracks[i].Close(uint32(end - trackTimes[i]))
	}
	out.Tracks = tracks
	return out, nil
}

package processor

import (
	"fmt"
	"log"

	"github.com/divVerent/staffmerger/internal/score"
)

// Options tune a consolidation run.
type Options struct {
	// Confirm is asked before a task without any assignment clears the
	// destination staff. A nil Confirm declines.
	Confirm func(prompt string) bool

	// KeepSources leaves moved source layers in place instead of clearing
	// them.
	KeepSources bool

	// Verbose dumps every timeline written.
	Verbose bool
}

// slotPlan is the outcome of the pre-flight of one accepted layer.
type slotPlan struct {
	// sources are the assignments with any content, in task order.
	sources []Assignment
	// base indexes sources; -1 for fewer than two sources.
	base int
}

type run struct {
	doc      Document
	task     *MergeTask
	opts     Options
	bars     score.Bars
	measures []int
	report   *Report

	plans    map[score.VoiceSlot]*slotPlan
	pinned   map[score.Location]bool
	pending  map[score.Location]bool
	written  map[score.Location]bool
	consumed []score.Location
	scratch  score.StaffID
	deferred []score.VoiceSlot
}

// Consolidate merges the layers assigned by task into the destination
// staff. Failures confined to one layer are recorded in the report and do
// not stop the other layers; any document error aborts the run.
func Consolidate(doc Document, task *MergeTask, opts Options) (*Report, error) {
	bars, err := doc.Bars()
	if err != nil {
		return nil, fmt.Errorf("could not read measures: %w", err)
	}
	if err := task.Validate(bars); err != nil {
		return nil, err
	}
	r := &run{
		doc:      doc,
		task:     task,
		opts:     opts,
		bars:     bars,
		measures: task.Measures.Measures(),
		report:   newReport(task),
		plans:    map[score.VoiceSlot]*slotPlan{},
		pinned:   map[score.Location]bool{},
		pending:  map[score.Location]bool{},
		written:  map[score.Location]bool{},
	}
	if len(task.Assignments) == 0 {
		return r.clearAll()
	}
	if err := r.preflight(); err != nil {
		return nil, err
	}
	if err := r.commit(); err != nil {
		return nil, err
	}
	return r.report, nil
}

func (r *run) dest(slot score.VoiceSlot) score.Location {
	return score.Location{Staff: r.task.DestinationStaff, Slot: slot}
}

func (r *run) length(measure int) score.Ticks {
	return r.bars[measure-1].Length()
}

// clearAll handles a task without assignments, which empties the whole
// destination once confirmed.
func (r *run) clearAll() (*Report, error) {
	prompt := fmt.Sprintf("Nothing is assigned. Clear all layers of staff %d in %v?", r.task.DestinationStaff, r.task.Measures)
	if r.opts.Confirm == nil || !r.opts.Confirm(prompt) {
		return nil, ErrEmptyDestinationConfirmationRequired
	}
	for _, slot := range score.Slots() {
		if err := r.clear(r.dest(slot)); err != nil {
			return nil, err
		}
		r.report.Slot(slot).State = Cleared
	}
	if err := r.rebar(); err != nil {
		return nil, err
	}
	return r.report, nil
}

// preflight plans every layer without writing anything, so that a layer
// that cannot be merged is rejected before any mutation.
func (r *run) preflight() error {
	bySlot := r.task.bySlot()
	for _, slot := range r.task.slotOrder() {
		res := r.report.Slot(slot)
		res.Sources = bySlot[slot]
		switch len(res.Sources) {
		case 0:
			continue
		case 1:
			res.State = SingleSource
		default:
			res.State = MultiSource
		}
		plan, err := r.plan(slot, res.Sources)
		if err != nil {
			if !isSlotError(err) {
				return err
			}
			r.reject(slot, err)
			continue
		}
		if plan.base >= 0 {
			res.State = Validated
			for i, a := range res.Sources {
				if a == plan.sources[plan.base] {
					res.Base = i
				}
			}
		}
		r.plans[slot] = plan
	}
	r.pinDestinations()
	return nil
}

func (r *run) load(as []Assignment) ([][]*score.Timeline, error) {
	out := make([][]*score.Timeline, len(as))
	for i, a := range as {
		for _, m := range r.measures {
			t, err := r.doc.LoadTimeline(a.SourceStaff, a.SourceSlot, m)
			if err != nil {
				return nil, fmt.Errorf("could not load %v measure %d: %w", a.Source(), m, err)
			}
			out[i] = append(out[i], t)
		}
	}
	return out, nil
}

func column(ts [][]*score.Timeline, j int) []*score.Timeline {
	out := make([]*score.Timeline, 0, len(ts))
	for _, measures := range ts {
		out = append(out, measures[j])
	}
	return out
}

func (r *run) plan(slot score.VoiceSlot, as []Assignment) (*slotPlan, error) {
	loaded, err := r.load(as)
	if err != nil {
		return nil, err
	}
	plan := &slotPlan{base: -1}
	var content [][]*score.Timeline
	for i, measures := range loaded {
		for _, t := range measures {
			if !t.IsEmpty() {
				plan.sources = append(plan.sources, as[i])
				content = append(content, measures)
				break
			}
		}
	}
	if len(content) < 2 {
		return plan, nil
	}
	plan.base = SelectBase(content)
	log.Printf("layer %d: using %v as base of %d sources.", slot, plan.sources[plan.base].Source(), len(content))
	for j, m := range r.measures {
		ts := column(content, j)
		if err := validateTuplets(ts, plan.base); err != nil {
			return nil, &SlotError{Slot: slot, Measure: m, Err: err}
		}
		for i, t := range ts {
			ts[i] = t.Clone()
		}
		dst := score.Address{Staff: r.task.DestinationStaff, Slot: slot, Measure: m}
		if _, err := mergeMeasure(ts, plan.base, dst, nil); err != nil {
			return nil, &SlotError{Slot: slot, Measure: m, Err: err}
		}
	}
	return plan, nil
}

// mergeMeasure relocates the base timeline to dst and merges the others
// into it. relocated, if set, is called with the relocated base before
// anything is merged into it.
func mergeMeasure(ts []*score.Timeline, base int, dst score.Address, relocated func(*score.Timeline) error) (*score.Timeline, error) {
	out := Relocate(ts[base], dst)
	if relocated != nil && out != ts[base] {
		if err := relocated(out); err != nil {
			return nil, err
		}
	}
	for i, t := range ts {
		if i == base {
			continue
		}
		var err error
		out, err = MergeTimelines(out, t)
		if err != nil {
			return nil, err
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *run) reject(slot score.VoiceSlot, err error) {
	res := r.report.Slot(slot)
	res.State = Rejected
	res.Err = err
	delete(r.plans, slot)
	for _, a := range res.Sources {
		r.pinned[a.Source()] = true
	}
	log.Printf("Rejected %v.", err)
}

// pinDestinations rejects accepted layers whose destination still holds
// the untouched source of a rejected layer, until nothing changes.
func (r *run) pinDestinations() {
	for changed := true; changed; {
		changed = false
		for _, slot := range score.Slots() {
			if r.plans[slot] == nil || !r.pinned[r.dest(slot)] {
				continue
			}
			r.reject(slot, &SlotError{Slot: slot, Err: fmt.Errorf("%w: %v", ErrDestinationInUse, r.dest(slot))})
			changed = true
		}
	}
}

func (r *run) save(t *score.Timeline) error {
	if r.opts.Verbose {
		DumpTimeline("write", t)
	}
	if err := r.doc.SaveTimeline(t); err != nil {
		return fmt.Errorf("could not save %v: %w", t.Address, err)
	}
	return nil
}

func (r *run) commit() error {
	order := r.task.slotOrder()
	for _, slot := range order {
		if r.plans[slot] == nil {
			continue
		}
		for _, a := range r.report.Slot(slot).Sources {
			r.pending[a.Source()] = true
		}
	}
	for _, slot := range order {
		if plan := r.plans[slot]; plan != nil {
			if err := r.commitSlot(slot, plan); err != nil {
				return err
			}
		}
	}
	if err := r.unstage(); err != nil {
		return err
	}
	if err := r.rebar(); err != nil {
		return err
	}
	if !r.opts.KeepSources {
		if err := r.clearConsumed(); err != nil {
			return err
		}
	}
	return r.clearUnassigned()
}

// commitSlot writes one layer. If its destination still holds source data
// of a layer not processed yet, the result is staged on the scratch staff.
func (r *run) commitSlot(slot score.VoiceSlot, plan *slotPlan) error {
	res := r.report.Slot(slot)
	loaded, err := r.load(plan.sources)
	if err != nil {
		return err
	}
	for _, a := range res.Sources {
		delete(r.pending, a.Source())
	}
	target := r.dest(slot)
	if r.pending[target] {
		if r.scratch == 0 {
			r.scratch, err = r.doc.AppendStaff()
			if err != nil {
				return fmt.Errorf("could not allocate scratch staff: %w", err)
			}
			r.report.ScratchStaff = r.scratch
			log.Printf("Allocated scratch staff %d.", r.scratch)
		}
		log.Printf("layer %d: %v is still to be moved, staging on scratch staff.", slot, target)
		target = score.Location{Staff: r.scratch, Slot: slot}
		res.Scratch = true
		r.deferred = append(r.deferred, slot)
	}
	for j, m := range r.measures {
		addr := score.Address{Staff: target.Staff, Slot: target.Slot, Measure: m}
		var out *score.Timeline
		switch len(plan.sources) {
		case 0:
			out = score.New(addr, r.length(m))
			if err := r.save(out); err != nil {
				return err
			}
		case 1:
			out = Relocate(loaded[0][j], addr)
			if out != loaded[0][j] {
				if err := r.save(out); err != nil {
					return err
				}
			}
		default:
			out, err = mergeMeasure(column(loaded, j), plan.base, addr, r.save)
			if err != nil {
				return fmt.Errorf("layer %d measure %d changed during the run: %w", slot, m, err)
			}
			if err := r.save(out); err != nil {
				return err
			}
		}
		res.Entries += len(out.Entries)
	}
	r.written[r.dest(slot)] = true
	for _, a := range res.Sources {
		r.consumed = append(r.consumed, a.Source())
	}
	if res.Entries == 0 {
		res.State = Cleared
	} else {
		res.State = Merged
	}
	return nil
}

// unstage moves layers staged on the scratch staff to their destination
// and removes the scratch staff.
func (r *run) unstage() error {
	for _, slot := range r.deferred {
		for _, m := range r.measures {
			t, err := r.doc.LoadTimeline(r.scratch, slot, m)
			if err != nil {
				return fmt.Errorf("could not load scratch layer %d measure %d: %w", slot, m, err)
			}
			addr := score.Address{Staff: r.task.DestinationStaff, Slot: slot, Measure: m}
			if err := r.save(Relocate(t, addr)); err != nil {
				return err
			}
		}
	}
	if r.scratch == 0 {
		return nil
	}
	if err := r.doc.DeleteStaff(r.scratch); err != nil {
		return fmt.Errorf("could not delete scratch staff %d: %w", r.scratch, err)
	}
	return nil
}

func (r *run) rebar() error {
	for _, m := range r.measures {
		if err := r.doc.RebarMeasure(r.task.DestinationStaff, m); err != nil {
			return fmt.Errorf("could not rebar measure %d: %w", m, err)
		}
	}
	return nil
}

// clear empties a layer over the task's measures.
func (r *run) clear(loc score.Location) error {
	for _, m := range r.measures {
		t, err := r.doc.LoadTimeline(loc.Staff, loc.Slot, m)
		if err != nil {
			return fmt.Errorf("could not load %v measure %d: %w", loc, m, err)
		}
		if t.IsEmpty() {
			continue
		}
		t.Clear()
		if err := r.save(t); err != nil {
			return err
		}
	}
	return nil
}

// clearConsumed empties source layers whose content was moved elsewhere.
func (r *run) clearConsumed() error {
	for _, loc := range r.consumed {
		if r.written[loc] || r.pinned[loc] {
			continue
		}
		if err := r.clear(loc); err != nil {
			return err
		}
		r.report.ClearedSources = append(r.report.ClearedSources, loc)
	}
	return nil
}

func (r *run) clearUnassigned() error {
	if !r.task.autoClear() {
		return nil
	}
	for _, slot := range score.Slots() {
		res := r.report.Slot(slot)
		if len(res.Sources) != 0 {
			continue
		}
		if r.pinned[r.dest(slot)] {
			log.Printf("layer %d: not clearing, it holds data of a rejected layer.", slot)
			continue
		}
		if err := r.clear(r.dest(slot)); err != nil {
			return err
		}
		res.State = Cleared
	}
	return nil
}

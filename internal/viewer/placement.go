package viewer

import (
	"sort"
	"strings"

	"nvsview/internal/logging"
	"nvsview/internal/loop"
	"nvsview/internal/types"
)

const retireKeyPrefix = "retire"

// RowInput is everything a renderer needs to draw one placed line.
type RowInput struct {
	Line       *types.Line
	Notes      []*types.Note
	Expanded   bool
	Breakpoint Breakpoint
	MeterWidth int
	Highlights []string
}

// RowRenderer draws a placed line as terminal rows. The first row is the
// line itself; expanded variants add rows below it.
type RowRenderer interface {
	RenderRow(in RowInput) []string
}

// PlainRenderer draws "label  text" with one extra row per variant.
type PlainRenderer struct{}

func (PlainRenderer) RenderRow(in RowInput) []string {
	if in.Line == nil {
		return nil
	}
	out := []string{in.Line.Label + "  " + in.Line.RenderedHTML}
	if !in.Expanded {
		return out
	}
	for _, note := range in.Notes {
		for _, variant := range note.Variants {
			text, _ := variant.Display()
			out = append(out, "    "+note.LineRange+text+"  "+variant.WitnessFormula)
		}
	}
	return out
}

// Row is the materialized form of a placed line.
type Row struct {
	No       int
	ID       string
	Content  []string
	Expanded bool
}

func (r *Row) Height() int {
	if r == nil {
		return 0
	}
	return len(r.Content)
}

func (r *Row) String() string {
	return strings.Join(r.Content, "\n")
}

// PlaceLine materializes a registered line. It cancels a pending
// retirement and schedules the debounced rewiring pass.
func (v *Viewer) PlaceLine(no int) {
	id, ok := v.reg.IDForNo(no)
	if !ok || v.reg.Line(id) == nil {
		return
	}
	v.sched.Cancel(retireKey(id))
	if _, placed := v.rows[no]; !placed {
		row := &Row{No: no, ID: id}
		v.rows[no] = row
		v.drawRow(row)
	}
	v.sched.ScheduleOnce(loop.KeyRewire, rewireDebounce, v.rewire)
}

func (v *Viewer) drawRow(row *Row) {
	line := v.reg.Line(row.ID)
	row.Content = v.renderer.RenderRow(RowInput{
		Line:       line,
		Notes:      v.reg.NotesFor(row.ID),
		Expanded:   row.Expanded,
		Breakpoint: v.breakpoint,
		MeterWidth: v.meterWidth,
		Highlights: v.highlighted[row.ID],
	})
	if len(row.Content) == 0 {
		row.Content = []string{""}
	}
}

func (v *Viewer) redrawLine(id string) {
	no, ok := v.reg.NoForID(id)
	if !ok {
		return
	}
	if row := v.rows[no]; row != nil {
		v.drawRow(row)
	}
}

func (v *Viewer) redrawAll() {
	for _, row := range v.rows {
		v.drawRow(row)
	}
}

// Redraw re-renders every placed row after a renderer setting changed.
func (v *Viewer) Redraw() {
	v.redrawAll()
}

// scheduleRetirement starts the retirement timer for a placed line unless
// it is taller than a single line or a timer is already pending.
func (v *Viewer) scheduleRetirement(no int) {
	row := v.rows[no]
	if row == nil || row.Expanded || row.Height() != v.observedLineHeight {
		return
	}
	v.sched.ScheduleIfIdle(retireKey(row.ID), retirementDelay, func() {
		v.retire(no)
	})
}

func (v *Viewer) retire(no int) {
	if v.inCurrentWindow(no) {
		return
	}
	row := v.rows[no]
	if row == nil {
		return
	}
	delete(v.rows, no)
	v.logger.Debug("line retired", logging.F("line", no))
}

// Retiring reports whether a retirement timer is pending for the line.
func (v *Viewer) Retiring(no int) bool {
	id, ok := v.reg.IDForNo(no)
	if !ok {
		return false
	}
	return v.sched.Pending(retireKey(id))
}

func (v *Viewer) rewire() {
	if !v.layoutDone {
		v.layout()
	} else {
		v.recalcObservedLineHeight()
	}
	if v.onRewire != nil {
		v.onRewire()
	}
}

// recalcObservedLineHeight takes the most frequent placed row height,
// floored at the minimum line height. It reports whether it changed.
func (v *Viewer) recalcObservedLineHeight() bool {
	counts := map[int]int{}
	for _, row := range v.rows {
		counts[row.Height()]++
	}
	heights := make([]int, 0, len(counts))
	for h := range counts {
		heights = append(heights, h)
	}
	sort.Ints(heights)
	best, bestCount := 0, 0
	for _, h := range heights {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	if best < v.minLineHeight {
		best = v.minLineHeight
	}
	if best == v.observedLineHeight {
		return false
	}
	v.observedLineHeight = best
	return true
}

func (v *Viewer) ObservedLineHeight() int {
	return v.observedLineHeight
}

// ToggleVariants expands or collapses the variant rows of a placed line
// that has notes. It returns the new expanded state.
func (v *Viewer) ToggleVariants(lineID string) bool {
	row := v.rowForID(lineID)
	if row == nil {
		return false
	}
	return v.setExpanded(row, !row.Expanded)
}

func (v *Viewer) setExpanded(row *Row, expanded bool) bool {
	line := v.reg.Line(row.ID)
	if line == nil || len(line.Notes) == 0 {
		return false
	}
	if row.Expanded == expanded {
		return expanded
	}
	row.Expanded = expanded
	if expanded {
		v.sched.Cancel(retireKey(row.ID))
	}
	v.drawRow(row)
	return expanded
}

func (v *Viewer) rowForID(lineID string) *Row {
	no, ok := v.reg.NoForID(lineID)
	if !ok {
		return nil
	}
	return v.rows[no]
}

// Row returns the placed row for an ordinal, nil when not placed.
func (v *Viewer) Row(no int) *Row {
	return v.rows[no]
}

func (v *Viewer) IsPlaced(no int) bool {
	_, ok := v.rows[no]
	return ok
}

func (v *Viewer) PlacedNos() []int {
	out := make([]int, 0, len(v.rows))
	for no := range v.rows {
		out = append(out, no)
	}
	sort.Ints(out)
	return out
}

func retireKey(lineID string) loop.Key {
	return loop.KeyFor(retireKeyPrefix, lineID)
}

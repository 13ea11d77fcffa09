package viewer

import (
	"nvsview/internal/logging"
	"nvsview/internal/loop"
)

type Breakpoint string

const (
	BreakpointXS Breakpoint = "xs"
	BreakpointSM Breakpoint = "sm"
	BreakpointMD Breakpoint = "md"
	BreakpointLG Breakpoint = "lg"
)

// BreakpointFor maps a terminal width in cells to a layout breakpoint.
func BreakpointFor(width int) Breakpoint {
	switch {
	case width < 60:
		return BreakpointXS
	case width < 90:
		return BreakpointSM
	case width < 120:
		return BreakpointMD
	default:
		return BreakpointLG
	}
}

// ShowsMeter reports whether witness meters are drawn at this breakpoint.
func (b Breakpoint) ShowsMeter() bool {
	return b == BreakpointMD || b == BreakpointLG
}

// Observe applies one batch of visibility changes. Every batch restarts
// the idle timer and requests a render.
func (v *Viewer) Observe(entered, exited []int) {
	v.sched.Cancel(loop.KeyIdle)
	for _, no := range entered {
		v.visible[no] = struct{}{}
	}
	for _, no := range exited {
		delete(v.visible, no)
	}
	if v.idleLoading && !v.fullyRegistered {
		v.startIdleTimer()
	}
	v.Scroll()
}

// SetVisible replaces the visible set, forwarding only the difference to
// Observe. An unchanged set is ignored.
func (v *Viewer) SetVisible(nos []int) {
	next := make(map[int]struct{}, len(nos))
	var entered, exited []int
	for _, no := range nos {
		if _, dup := next[no]; dup {
			continue
		}
		next[no] = struct{}{}
		if _, ok := v.visible[no]; !ok {
			entered = append(entered, no)
		}
	}
	for no := range v.visible {
		if _, ok := next[no]; !ok {
			exited = append(exited, no)
		}
	}
	if len(entered) == 0 && len(exited) == 0 {
		return
	}
	v.Observe(entered, exited)
}

// Scroll debounces a render, forcing one right away when the last render
// is at least a second old.
func (v *Viewer) Scroll() {
	v.sched.ScheduleOnce(loop.KeyScroll, scrollDebounce, v.Render)
	if v.lastRendered.IsZero() {
		return
	}
	if v.clock.Now().Sub(v.lastRendered) >= staleRenderAfter {
		v.Render()
	}
}

// Resize records the viewport size and debounces the layout pass.
func (v *Viewer) Resize(width, height int) {
	v.width = width
	v.height = height
	v.sched.ScheduleOnce(loop.KeyResize, resizeDebounce, v.layout)
}

// layout recomputes the breakpoint, window size, observed line height and
// meter width, redrawing rows when the meter geometry changed.
func (v *Viewer) layout() {
	first := !v.layoutDone
	v.layoutDone = true

	last := v.breakpoint
	v.breakpoint = BreakpointFor(v.width)
	v.applyWindowSize(v.height)

	meterWidth := 0
	if v.breakpoint.ShowsMeter() {
		meterWidth = v.width / 4
	}
	heightChanged := v.recalcObservedLineHeight()
	if meterWidth != v.meterWidth || last != v.breakpoint || heightChanged {
		v.meterWidth = meterWidth
		v.redrawAll()
	}
	v.logger.Debug("layout",
		logging.F("breakpoint", string(v.breakpoint)),
		logging.F("window", v.windowSize),
		logging.F("buffer", v.buffer),
		logging.F("line_height", v.observedLineHeight),
		logging.F("first", first),
	)
}

func (v *Viewer) Breakpoint() Breakpoint {
	return v.breakpoint
}

func (v *Viewer) MeterWidth() int {
	return v.meterWidth
}

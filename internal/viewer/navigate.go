package viewer

import (
	"context"
	"strings"

	"nvsview/internal/logging"
	"nvsview/internal/loop"
)

// NavigateTo scrolls to a line, or to the first line of a note, and calls
// done once that line is registered and placed. It polls every 200ms and
// gives up after 20 attempts. With expandVariants set the line's variant
// rows are opened before done runs.
func (v *Viewer) NavigateTo(id string, expandVariants bool, done func()) bool {
	lineID := v.resolveLineID(id)
	no, ok := v.reg.NoForID(lineID)
	if !ok {
		v.logger.Warn("navigation target unknown", logging.F("id", id))
		return false
	}
	v.scrollToNo(no)
	if done == nil && !expandVariants {
		return true
	}

	attempts := 0
	var poll func()
	poll = func() {
		if v.reg.Line(lineID) != nil && v.IsPlaced(no) {
			if expandVariants {
				if row := v.rows[no]; row != nil {
					v.setExpanded(row, true)
				}
			}
			if done != nil {
				done()
			}
			return
		}
		if attempts >= navigatePollTries {
			v.logger.Warn("navigation timed out", logging.F("id", lineID), logging.F("attempts", attempts))
			return
		}
		attempts++
		v.sched.ScheduleOnce(loop.KeyNavigatePoll, navigatePollEvery, poll)
	}
	poll()
	return true
}

func (v *Viewer) resolveLineID(id string) string {
	if note := v.reg.Note(id); note != nil && len(note.Lines) > 0 {
		return note.Lines[0].ID
	}
	return id
}

func (v *Viewer) scrollToNo(no int) {
	if v.scrollTo != nil {
		v.scrollTo(no)
		return
	}
	v.SetVisible([]int{no})
}

// ScrollToLine moves the viewport to a line ID without waiting.
func (v *Viewer) ScrollToLine(lineID string) bool {
	no, ok := v.reg.NoForID(lineID)
	if !ok {
		return false
	}
	v.scrollToNo(no)
	return true
}

// GotoLabel jumps to a through-line number typed by the reader. It tries
// tln_<entry>, then the entry zero padded to four digits, then asks the
// source to resolve the padded ID as an alternate identifier. done
// reports whether a line was found.
func (v *Viewer) GotoLabel(entry string, done func(bool)) {
	entry = strings.TrimSpace(entry)
	finish := func(found bool) {
		if done != nil {
			done(found)
		}
	}
	if entry == "" {
		finish(false)
		return
	}
	if v.ScrollToLine("tln_" + entry) {
		finish(true)
		return
	}
	padded := entry
	for len(padded) < 4 {
		padded = "0" + padded
	}
	altID := "tln_" + padded
	if v.ScrollToLine(altID) {
		finish(true)
		return
	}
	resolver, ok := v.source.(AltIDResolver)
	if !ok {
		finish(false)
		return
	}
	v.inFlight++
	v.spawn(func() {
		ctx, cancel := context.WithTimeout(v.ctx, v.fetchTimeout)
		defer cancel()
		lineID, err := resolver.LineIDForAltID(ctx, altID)
		v.poster.Post(func() {
			v.inFlight--
			if err != nil {
				v.logger.Warn("line lookup failed", logging.F("id", altID), logging.F("err", err))
				finish(false)
				return
			}
			finish(lineID != "" && v.ScrollToLine(lineID))
		})
	})
}

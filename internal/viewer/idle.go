package viewer

import (
	"time"

	"nvsview/internal/logging"
	"nvsview/internal/loop"
)

// SetIdleLoading turns the background loader on or off.
func (v *Viewer) SetIdleLoading(enabled bool) {
	v.idleLoading = enabled
	if !enabled {
		v.sched.Cancel(loop.KeyIdle)
		return
	}
	if !v.fullyRegistered {
		v.startIdleTimer()
	}
}

func (v *Viewer) startIdleTimer() {
	v.sched.ScheduleOnce(loop.KeyIdle, idleDelay, v.idleLoad)
}

// idleLoad registers the next batch of unregistered lines, one request per
// contiguous run, without placing them, and re-arms itself once every run
// has merged. A failed batch waits for the next visibility change.
func (v *Viewer) idleLoad() {
	if len(v.reg.Stubs()) == 0 {
		return
	}
	v.lastRendered = time.Time{}
	batch := v.idleBatch()
	if len(batch) == 0 {
		v.fullyRegistered = true
		v.logger.Info("all lines registered", logging.F("lines", v.reg.RegisteredCount()))
		return
	}
	ranges := GapRanges(batch, v.reg.IsRegistered, true)
	v.logger.Debug("idle loading", logging.F("lines", batch), logging.F("requests", len(ranges)))
	pending := len(ranges)
	var failed bool
	for _, r := range ranges {
		v.fetchRange(r, false, func(err error) {
			pending--
			if err != nil {
				failed = true
			}
			if pending > 0 || failed || !v.idleLoading {
				return
			}
			if !v.reg.IsRegistered(batch[0]) {
				v.logger.Warn("idle batch did not register its first line", logging.F("line", batch[0]))
				return
			}
			v.startIdleTimer()
		})
	}
}

// idleBatch lists the next idleBatchSize unregistered ordinals in document
// order, starting at the first unregistered line.
func (v *Viewer) idleBatch() []int {
	start, ok := v.reg.FirstUnregistered()
	if !ok {
		return nil
	}
	var out []int
	for _, no := range v.reg.Ordinals() {
		if len(out) >= v.idleBatchSize {
			break
		}
		if no < start || v.reg.IsRegistered(no) {
			continue
		}
		out = append(out, no)
	}
	return out
}

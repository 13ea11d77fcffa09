package loop

import (
	"sync"
	"time"
)

// Key names a one-shot timer slot. Scheduling a key replaces whatever was
// pending under it.
type Key string

const (
	KeyScroll       Key = "scroll"
	KeyStaleRender  Key = "stale-render"
	KeyResize       Key = "resize"
	KeyIdle         Key = "idle"
	KeyRewire       Key = "rewire"
	KeyNavigating   Key = "navigating"
	KeyNavigatePoll Key = "navigate-poll"
)

// KeyFor builds a key for per-item timers such as line retirement.
func KeyFor(prefix string, id string) Key {
	return Key(prefix + ":" + id)
}

type entry struct {
	gen    uint64
	stop   Stopper
	fireAt time.Time
}

// Scheduler runs keyed one-shot timers whose callbacks are delivered on the
// Poster. A callback that fires after its key was cancelled or replaced is
// dropped when it reaches the loop.
type Scheduler struct {
	clock  Clock
	poster Poster

	mu      sync.Mutex
	gen     uint64
	entries map[Key]entry
}

func NewScheduler(clock Clock, poster Poster) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock, poster: poster, entries: map[Key]entry{}}
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// ScheduleOnce arms key to run fn after delay, replacing any pending timer
// under the same key.
func (s *Scheduler) ScheduleOnce(key Key, delay time.Duration, fn func()) {
	s.mu.Lock()
	if prev, ok := s.entries[key]; ok && prev.stop != nil {
		prev.stop.Stop()
	}
	s.gen++
	gen := s.gen
	e := entry{gen: gen, fireAt: s.clock.Now().Add(delay)}
	s.entries[key] = e
	s.mu.Unlock()

	stop := s.clock.AfterFunc(delay, func() {
		s.poster.Post(func() {
			if !s.claim(key, gen) {
				return
			}
			fn()
		})
	})

	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && cur.gen == gen {
		cur.stop = stop
		s.entries[key] = cur
	}
	s.mu.Unlock()
}

// ScheduleIfIdle arms key only when nothing is pending under it.
func (s *Scheduler) ScheduleIfIdle(key Key, delay time.Duration, fn func()) bool {
	if s.Pending(key) {
		return false
	}
	s.ScheduleOnce(key, delay, fn)
	return true
}

func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	if e.stop != nil {
		e.stop.Stop()
	}
	return true
}

func (s *Scheduler) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Remaining reports how long until key fires, zero when not pending.
func (s *Scheduler) Remaining(key Key) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0
	}
	if left := e.fireAt.Sub(s.clock.Now()); left > 0 {
		return left
	}
	return 0
}

// CancelAll stops every pending timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.stop != nil {
			e.stop.Stop()
		}
		delete(s.entries, key)
	}
}

func (s *Scheduler) claim(key Key, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return false
	}
	delete(s.entries, key)
	return true
}

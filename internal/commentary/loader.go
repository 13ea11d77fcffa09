package commentary

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"nvsview/internal/logging"
	"nvsview/internal/loop"
	"nvsview/internal/types"
)

const (
	defaultSwathSize   = 10
	navigatingReset    = time.Second
	navigatePollEvery  = 200 * time.Millisecond
	navigatePollTries  = 20
	defaultFetchBudget = 30 * time.Second
)

type Area string

const (
	AreaTop    Area = "Top"
	AreaUp     Area = "Up"
	AreaFocus  Area = "Focus"
	AreaDown   Area = "Down"
	AreaBottom Area = "Bottom"
)

// descending areas grow toward lower sequences.
func (a Area) descending() bool {
	return a == AreaUp || a == AreaBottom
}

type Source interface {
	CommentaryPage(ctx context.Context, q types.CommentaryQuery) ([]*types.Commentary, error)
	Commentary(ctx context.Context, id string) (*types.Commentary, error)
}

// Entry is one commentary note placed in a frame.
type Entry struct {
	Comm *types.Commentary
	Area Area
	// Trigger marks the last note of a full page; seeing it loads the next
	// swath for its area once.
	Trigger   bool
	triggered bool
}

type Options struct {
	Source    Source
	Logger    logging.Logger
	Clock     loop.Clock
	Poster    loop.Poster
	Spawn     func(func())
	SwathSize int
	// ScrollTo brings a note into view in the commentary panel.
	ScrollTo func(id string)
}

// Loader keeps the commentary panel: five frames filled by swaths paged
// from per-area sequence cursors. Methods run on the loop goroutine.
type Loader struct {
	ctx      context.Context
	source   Source
	logger   logging.Logger
	poster   loop.Poster
	sched    *loop.Scheduler
	spawn    func(func())
	scrollTo func(id string)

	swathSize  int
	frames     map[Area][]*Entry
	cursors    map[Area]int
	loaded     map[string]struct{}
	navigating bool
	inFlight   int

	// focusGen identifies the current focus; completions of an older focus
	// are dropped.
	focusGen uint64
	// focusNavigating holds navigating for an in-flight focus navigation.
	focusNavigating bool
}

func New(ctx context.Context, opts Options) *Loader {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Poster == nil {
		opts.Poster = loop.NewQueue()
	}
	if opts.Spawn == nil {
		opts.Spawn = func(fn func()) { go fn() }
	}
	if opts.SwathSize <= 0 {
		opts.SwathSize = defaultSwathSize
	}
	return &Loader{
		ctx:       ctx,
		source:    opts.Source,
		logger:    opts.Logger.With(logging.F("component", "commentary")),
		poster:    opts.Poster,
		sched:     loop.NewScheduler(opts.Clock, opts.Poster),
		spawn:     opts.Spawn,
		scrollTo:  opts.ScrollTo,
		swathSize: opts.SwathSize,
		frames:    map[Area][]*Entry{},
		cursors:   map[Area]int{},
		loaded:    map[string]struct{}{},
	}
}

// Start loads the first swath at each end of the commentary.
func (l *Loader) Start() {
	l.LoadSwath(AreaTop, nil)
	l.LoadSwath(AreaBottom, nil)
}

func (l *Loader) query(area Area) types.CommentaryQuery {
	q := types.CommentaryQuery{Descending: area.descending(), PageSize: l.swathSize}
	if cursor, ok := l.cursors[area]; ok {
		q.Cursor = &cursor
	}
	return q
}

// LoadSwath fetches the next page for area and appends the notes not yet
// loaded to its frame.
func (l *Loader) LoadSwath(area Area, done func(error)) {
	q := l.query(area)
	gen := l.focusGen
	l.inFlight++
	l.spawn(func() {
		ctx, cancel := context.WithTimeout(l.ctx, defaultFetchBudget)
		defer cancel()
		page, err := l.source.CommentaryPage(ctx, q)
		l.poster.Post(func() {
			l.inFlight--
			if err != nil {
				l.logger.Warn("commentary swath failed", logging.F("area", string(area)), logging.F("err", err))
			} else if l.refocused(area, gen) {
				l.logger.Debug("stale commentary swath dropped", logging.F("area", string(area)))
			} else {
				l.applySwath(area, page)
			}
			if done != nil {
				done(err)
			}
		})
	})
}

func (l *Loader) applySwath(area Area, page []*types.Commentary) {
	if len(page) == 0 {
		return
	}
	appended := 0
	for i, comm := range page {
		if comm == nil {
			continue
		}
		if _, ok := l.loaded[comm.ID]; ok {
			continue
		}
		l.frames[area] = append(l.frames[area], &Entry{
			Comm:    comm,
			Area:    area,
			Trigger: i == l.swathSize-1,
		})
		l.loaded[comm.ID] = struct{}{}
		appended++
	}
	l.cursors[area] = page[len(page)-1].Sequence
	l.logger.Debug("commentary swath loaded",
		logging.F("area", string(area)),
		logging.F("appended", appended),
		logging.F("cursor", l.cursors[area]),
	)
}

func (l *Loader) clearFrame(area Area) {
	for _, entry := range l.frames[area] {
		delete(l.loaded, entry.Comm.ID)
	}
	l.frames[area] = nil
}

// FocusOnComm re-centres the panel on one note: the Up and Down frames are
// rebuilt around its sequence.
func (l *Loader) FocusOnComm(id string) {
	l.focus(id, false, nil)
}

// refocused reports whether a swath for area started under gen belongs to a
// focus that has since been replaced.
func (l *Loader) refocused(area Area, gen uint64) bool {
	return (area == AreaUp || area == AreaDown) && gen != l.focusGen
}

func (l *Loader) focus(id string, navigate bool, fetched func(found bool)) {
	l.focusGen++
	gen := l.focusGen
	l.sched.Cancel(loop.KeyNavigatePoll)
	if navigate {
		l.navigating = true
		l.focusNavigating = true
		l.sched.Cancel(loop.KeyNavigating)
	}
	l.clearFrame(AreaUp)
	l.clearFrame(AreaDown)
	l.inFlight++
	l.spawn(func() {
		ctx, cancel := context.WithTimeout(l.ctx, defaultFetchBudget)
		defer cancel()
		comm, err := l.source.Commentary(ctx, id)
		l.poster.Post(func() {
			l.inFlight--
			if gen != l.focusGen {
				l.logger.Debug("stale commentary focus dropped", logging.F("id", id))
				return
			}
			if err != nil {
				l.logger.Warn("commentary fetch failed", logging.F("id", id), logging.F("err", err))
			}
			if err != nil || comm == nil {
				l.settleFocus()
				if fetched != nil {
					fetched(false)
				}
				return
			}
			l.clearFrame(AreaFocus)
			l.frames[AreaFocus] = []*Entry{{Comm: comm, Area: AreaFocus}}
			l.cursors[AreaUp] = comm.Sequence - 1
			l.cursors[AreaDown] = comm.Sequence + 1
			l.loadAround(comm.ID, gen)
			if fetched != nil {
				fetched(true)
			}
		})
	})
}

// settleFocus releases the navigating flag held by a focus navigation.
func (l *Loader) settleFocus() {
	if !l.focusNavigating {
		return
	}
	l.focusNavigating = false
	l.navigating = false
}

// loadAround fetches the Up and Down swaths together and marks the focused
// note loaded once both have merged.
func (l *Loader) loadAround(id string, gen uint64) {
	up, down := l.query(AreaUp), l.query(AreaDown)
	l.inFlight++
	l.spawn(func() {
		ctx, cancel := context.WithTimeout(l.ctx, defaultFetchBudget)
		defer cancel()
		var upPage, downPage []*types.Commentary
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			upPage, err = l.source.CommentaryPage(gctx, up)
			return err
		})
		g.Go(func() error {
			var err error
			downPage, err = l.source.CommentaryPage(gctx, down)
			return err
		})
		err := g.Wait()
		l.poster.Post(func() {
			l.inFlight--
			if gen != l.focusGen {
				l.logger.Debug("stale commentary focus swaths dropped", logging.F("id", id))
				return
			}
			l.settleFocus()
			if err != nil {
				l.logger.Warn("commentary focus swaths failed", logging.F("id", id), logging.F("err", err))
				return
			}
			l.applySwath(AreaUp, upPage)
			l.applySwath(AreaDown, downPage)
			l.loaded[id] = struct{}{}
			l.scroll(id)
		})
	})
}

// NavigateTo scrolls to a note, focusing the panel on it first when it is
// not displayed, and calls done once it is loaded. It gives up after 20
// polls 200ms apart.
func (l *Loader) NavigateTo(id string, done func()) {
	if l.Find(id) != nil {
		l.navigating = true
		l.scroll(id)
		if done != nil {
			done()
		}
		l.sched.ScheduleOnce(loop.KeyNavigating, navigatingReset, l.releaseNavigating)
		return
	}
	l.focus(id, true, func(bool) {
		if done == nil {
			return
		}
		attempts := 0
		var poll func()
		poll = func() {
			if l.IsLoaded(id) {
				done()
				return
			}
			if attempts >= navigatePollTries {
				l.logger.Warn("commentary navigation timed out", logging.F("id", id))
				return
			}
			attempts++
			l.sched.ScheduleOnce(loop.KeyNavigatePoll, navigatePollEvery, poll)
		}
		poll()
	})
}

// Observe reports the notes now visible in the panel. A visible swath
// trigger loads the next page of its area unless navigation is under way.
func (l *Loader) Observe(visibleIDs []string) {
	for _, id := range visibleIDs {
		if l.navigating {
			return
		}
		entry := l.Find(id)
		if entry == nil || !entry.Trigger || entry.triggered {
			continue
		}
		entry.triggered = true
		l.navigating = true
		area := entry.Area
		l.LoadSwath(area, func(error) {
			if area.descending() {
				l.scroll(entry.Comm.ID)
			}
			l.releaseNavigating()
		})
	}
}

// releaseNavigating clears navigating unless a focus navigation holds it.
func (l *Loader) releaseNavigating() {
	if !l.focusNavigating {
		l.navigating = false
	}
}

func (l *Loader) scroll(id string) {
	if l.scrollTo != nil {
		l.scrollTo(id)
	}
}

// Find returns the displayed entry for a note ID.
func (l *Loader) Find(id string) *Entry {
	for _, area := range []Area{AreaTop, AreaUp, AreaFocus, AreaDown, AreaBottom} {
		for _, entry := range l.frames[area] {
			if entry.Comm.ID == id {
				return entry
			}
		}
	}
	return nil
}

func (l *Loader) IsLoaded(id string) bool {
	_, ok := l.loaded[id]
	return ok
}

func (l *Loader) Navigating() bool {
	return l.navigating
}

func (l *Loader) Busy() bool {
	return l.inFlight > 0
}

func (l *Loader) Cursor(area Area) (int, bool) {
	cursor, ok := l.cursors[area]
	return cursor, ok
}

func (l *Loader) Frame(area Area) []*Entry {
	return append([]*Entry(nil), l.frames[area]...)
}

// Display lists the entries in reading order. Up and Bottom are filled
// toward lower sequences, so they are reversed.
func (l *Loader) Display() []*Entry {
	var out []*Entry
	out = append(out, l.frames[AreaTop]...)
	out = append(out, reversed(l.frames[AreaUp])...)
	out = append(out, l.frames[AreaFocus]...)
	out = append(out, l.frames[AreaDown]...)
	out = append(out, reversed(l.frames[AreaBottom])...)
	return out
}

func reversed(entries []*Entry) []*Entry {
	out := make([]*Entry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	return out
}

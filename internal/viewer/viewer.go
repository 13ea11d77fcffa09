package viewer

import (
	"context"
	"math"
	"sort"
	"time"

	"nvsview/internal/logging"
	"nvsview/internal/loop"
	"nvsview/internal/types"
)

const (
	scrollDebounce      = 200 * time.Millisecond
	staleRenderAfter    = time.Second
	resizeDebounce      = time.Second
	idleDelay           = 3 * time.Second
	retirementDelay     = 3 * time.Second
	rewireDebounce      = 500 * time.Millisecond
	navigatePollEvery   = 200 * time.Millisecond
	navigatePollTries   = 20
	defaultFetchTimeout = 30 * time.Second
)

// Source supplies line and note records by ordinal range.
type Source interface {
	Lines(ctx context.Context, start, end int) ([]*types.Line, error)
	Notes(ctx context.Context, start, end int) ([]*types.Note, error)
}

// SkeletonSource also lists a stub for every line of the play.
type SkeletonSource interface {
	Source
	Skeleton(ctx context.Context) ([]types.LineStub, int, error)
}

// AltIDResolver maps alternate TLN identifiers to line IDs.
type AltIDResolver interface {
	LineIDForAltID(ctx context.Context, altID string) (string, error)
}

type Options struct {
	Source   Source
	Renderer RowRenderer
	Logger   logging.Logger
	Clock    loop.Clock
	Poster   loop.Poster

	// Spawn runs blocking fetches; defaults to a new goroutine.
	Spawn func(func())

	MinLineHeight int
	BufferFactor  int
	// WindowSize and Buffer pin the window instead of deriving it from the
	// viewport height.
	WindowSize int
	Buffer     int

	IdleLoading   bool
	IdleBatchSize int
	FetchTimeout  time.Duration

	// ScrollTo moves the viewport so ordinal no is on screen.
	ScrollTo func(no int)
	// OnRewire runs after each debounced rewiring pass.
	OnRewire func()
}

// Viewer is the windowed rendering engine for the play text. Every method
// must be called from the goroutine that drains Options.Poster.
type Viewer struct {
	ctx      context.Context
	source   Source
	renderer RowRenderer
	logger   logging.Logger
	clock    loop.Clock
	poster   loop.Poster
	sched    *loop.Scheduler
	spawn    func(func())

	reg        *Registry
	visible    map[int]struct{}
	lastWindow map[int]struct{}
	rows       map[int]*Row

	filter   Filter
	filtered bool

	minLineHeight      int
	observedLineHeight int
	bufferFactor       int
	pinnedWindow       int
	pinnedBuffer       int
	windowSize         int
	buffer             int
	width              int
	height             int
	breakpoint         Breakpoint
	meterWidth         int
	layoutDone         bool

	idleLoading     bool
	idleBatchSize   int
	fullyRegistered bool
	fetchTimeout    time.Duration
	inFlight        int

	lastRendered time.Time
	activeScene  string
	highlighted  map[string][]string

	scrollTo func(no int)
	onRewire func()
}

func New(ctx context.Context, opts Options) *Viewer {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = loop.RealClock()
	}
	if opts.Poster == nil {
		opts.Poster = loop.NewQueue()
	}
	if opts.Spawn == nil {
		opts.Spawn = func(fn func()) { go fn() }
	}
	if opts.Renderer == nil {
		opts.Renderer = PlainRenderer{}
	}
	if opts.MinLineHeight <= 0 {
		opts.MinLineHeight = 1
	}
	if opts.BufferFactor <= 0 {
		opts.BufferFactor = 5
	}
	if opts.IdleBatchSize <= 0 {
		opts.IdleBatchSize = 500
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	v := &Viewer{
		ctx:                ctx,
		source:             opts.Source,
		renderer:           opts.Renderer,
		logger:             opts.Logger.With(logging.F("component", "viewer")),
		clock:              opts.Clock,
		poster:             opts.Poster,
		sched:              loop.NewScheduler(opts.Clock, opts.Poster),
		spawn:              opts.Spawn,
		reg:                NewRegistry(),
		visible:            map[int]struct{}{},
		rows:               map[int]*Row{},
		minLineHeight:      opts.MinLineHeight,
		observedLineHeight: opts.MinLineHeight,
		bufferFactor:       opts.BufferFactor,
		pinnedWindow:       opts.WindowSize,
		pinnedBuffer:       opts.Buffer,
		idleLoading:        opts.IdleLoading,
		idleBatchSize:      opts.IdleBatchSize,
		fetchTimeout:       opts.FetchTimeout,
		highlighted:        map[string][]string{},
		scrollTo:           opts.ScrollTo,
		onRewire:           opts.OnRewire,
	}
	v.applyWindowSize(0)
	return v
}

// LoadSkeleton seeds the registry with the stub of every line.
func (v *Viewer) LoadSkeleton(stubs []types.LineStub) {
	v.reg.LoadSkeleton(stubs)
	if len(stubs) > 0 && v.activeScene == "" {
		v.activeScene = v.reg.ActSceneOf(v.reg.lowest)
	}
}

// Start fetches the skeleton in the background and renders the first
// window once it arrives. done receives the fetch error, if any.
func (v *Viewer) Start(done func(error)) {
	src, ok := v.source.(SkeletonSource)
	if !ok {
		v.Render()
		if done != nil {
			done(nil)
		}
		return
	}
	v.inFlight++
	v.spawn(func() {
		ctx, cancel := context.WithTimeout(v.ctx, v.fetchTimeout)
		defer cancel()
		stubs, _, err := src.Skeleton(ctx)
		v.poster.Post(func() {
			v.inFlight--
			if err != nil {
				v.logger.Error("skeleton fetch failed", logging.F("err", err))
			} else {
				v.LoadSkeleton(stubs)
				v.logger.Info("skeleton loaded", logging.F("lines", len(stubs)))
				v.Render()
				if v.idleLoading {
					v.startIdleTimer()
				}
			}
			if done != nil {
				done(err)
			}
		})
	})
}

// Render reconciles the desired window with the registry: resident lines
// are placed, gaps are fetched, and lines leaving the window start their
// retirement timers.
func (v *Viewer) Render() {
	lowest, highest, ok := v.reg.Bounds()
	if !ok {
		return
	}

	var window []int
	switch {
	case v.filtered:
		window = DesiredWindow(v.windowInput())
	case v.lastWindow == nil:
		window = InitialWindow(lowest, highest, v.windowSize, v.buffer)
	default:
		window = DesiredWindow(v.windowInput())
	}
	if len(window) == 0 {
		return
	}

	inWindow := make(map[int]struct{}, len(window))
	for _, no := range window {
		inWindow[no] = struct{}{}
	}
	if v.lastWindow != nil {
		for _, no := range v.PlacedNos() {
			if _, ok := inWindow[no]; !ok {
				v.scheduleRetirement(no)
			}
		}
	}

	for _, no := range window {
		if v.reg.IsRegistered(no) {
			v.PlaceLine(no)
		}
	}
	ranges := GapRanges(window, v.reg.IsRegistered, v.filtered)
	v.lastWindow = inWindow
	for _, r := range ranges {
		v.fetchRange(r, true, nil)
	}

	v.updateActiveScene()
	v.lastRendered = v.clock.Now()
}

func (v *Viewer) windowInput() WindowInput {
	lowest, highest, _ := v.reg.Bounds()
	in := WindowInput{
		Visible: v.VisibleNos(),
		Buffer:  v.buffer,
		Lowest:  lowest,
		Highest: highest,
	}
	if v.filtered && v.filter != nil {
		in.Filter = v.filter
		in.Ordinals = v.reg.Ordinals()
	}
	return in
}

// inCurrentWindow recomputes the window, falling back to the last one
// when nothing is visible.
func (v *Viewer) inCurrentWindow(no int) bool {
	window := DesiredWindow(v.windowInput())
	if len(window) == 0 {
		_, ok := v.lastWindow[no]
		return ok
	}
	i := sort.SearchInts(window, no)
	return i < len(window) && window[i] == no
}

// SetFilter injects the line predicate. A nil filter returns to the
// contiguous window. The caller renders afterwards.
func (v *Viewer) SetFilter(filter Filter) {
	v.filter = filter
	v.filtered = filter != nil
}

func (v *Viewer) Filtered() bool {
	return v.filtered
}

// Passes reports whether an ordinal is shown under the active filter.
func (v *Viewer) Passes(no int) bool {
	if !v.filtered || v.filter == nil {
		return true
	}
	return v.filter(no)
}

func (v *Viewer) updateActiveScene() {
	visible := v.VisibleNos()
	if len(visible) == 0 {
		return
	}
	if scene := v.reg.ActSceneOf(visible[0]); scene != "" {
		v.activeScene = scene
	}
}

// ActiveActScene follows the lowest visible line.
func (v *Viewer) ActiveActScene() string {
	return v.activeScene
}

// ActScenes lists act/scene keys in document order, restricted to those
// with at least one line passing the filter.
func (v *Viewer) ActScenes() []string {
	all := v.reg.ActScenes()
	if !v.filtered {
		return all
	}
	keep := map[string]bool{}
	for _, stub := range v.reg.Stubs() {
		if v.Passes(stub.LineNumber) {
			keep[stub.ActScene()] = true
		}
	}
	out := all[:0]
	for _, key := range all {
		if keep[key] {
			out = append(out, key)
		}
	}
	return out
}

// GotoActScene scrolls to the first line of an act/scene.
func (v *Viewer) GotoActScene(key string) bool {
	for _, stub := range v.reg.Stubs() {
		if stub.ActScene() == key && v.Passes(stub.LineNumber) {
			v.scrollToNo(stub.LineNumber)
			return true
		}
	}
	return false
}

func (v *Viewer) Registry() *Registry {
	return v.reg
}

func (v *Viewer) Scheduler() *loop.Scheduler {
	return v.sched
}

// RegisterLines merges records into the registry and, when place is set,
// places the newly registered ordinals that sit inside the current window.
func (v *Viewer) RegisterLines(lines []*types.Line, notes []*types.Note, place bool) []int {
	added := v.reg.Register(lines, notes)
	for _, no := range added {
		if !place {
			continue
		}
		if _, ok := v.lastWindow[no]; ok {
			v.PlaceLine(no)
		}
	}
	if len(added) > 0 {
		v.logger.Debug("lines registered", logging.F("ordinals", added))
	}
	return added
}

func (v *Viewer) VisibleNos() []int {
	out := make([]int, 0, len(v.visible))
	for no := range v.visible {
		out = append(out, no)
	}
	sort.Ints(out)
	return out
}

// WindowNos returns the window computed by the last render.
func (v *Viewer) WindowNos() []int {
	out := make([]int, 0, len(v.lastWindow))
	for no := range v.lastWindow {
		out = append(out, no)
	}
	sort.Ints(out)
	return out
}

func (v *Viewer) WindowSize() int { return v.windowSize }
func (v *Viewer) Buffer() int     { return v.buffer }

func (v *Viewer) FullyRegistered() bool {
	return v.fullyRegistered
}

// Busy reports fetches in flight.
func (v *Viewer) Busy() bool {
	return v.inFlight > 0
}

func (v *Viewer) LastRendered() time.Time {
	return v.lastRendered
}

// SetHighlights marks search matches to highlight per line ID and redraws
// the affected rows.
func (v *Viewer) SetHighlights(matches map[string][]string) {
	prev := v.highlighted
	v.highlighted = map[string][]string{}
	for id, spans := range matches {
		v.highlighted[id] = append([]string(nil), spans...)
	}
	for id := range prev {
		v.redrawLine(id)
	}
	for id := range v.highlighted {
		v.redrawLine(id)
	}
}

func (v *Viewer) applyWindowSize(height int) {
	switch {
	case v.pinnedWindow > 0:
		v.windowSize = v.pinnedWindow
	case height > 0:
		v.windowSize = int(math.Round(float64(height) / float64(v.minLineHeight)))
	default:
		v.windowSize = 40
	}
	if v.windowSize < 1 {
		v.windowSize = 1
	}
	if v.pinnedBuffer > 0 {
		v.buffer = v.pinnedBuffer
	} else {
		v.buffer = v.windowSize * v.bufferFactor
	}
}

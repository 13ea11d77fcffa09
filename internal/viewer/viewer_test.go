package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvsview/internal/loop"
	"nvsview/internal/testutil"
)

type harness struct {
	t       *testing.T
	edition *testutil.Edition
	clock   *testutil.FakeClock
	queue   *loop.Queue
	v       *Viewer
}

func newHarness(t *testing.T, lines int, configure func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		edition: testutil.NewEdition(lines),
		clock:   testutil.NewFakeClock(),
		queue:   loop.NewQueue(),
	}
	opts := Options{
		Source:     h.edition,
		Clock:      h.clock,
		Poster:     h.queue,
		Spawn:      func(fn func()) { fn() },
		WindowSize: 10,
		Buffer:     50,
	}
	if configure != nil {
		configure(&opts)
	}
	h.v = New(context.Background(), opts)
	stubs, _, err := h.edition.Skeleton(context.Background())
	require.NoError(t, err)
	h.v.LoadSkeleton(stubs)
	h.edition.ResetCalls()
	return h
}

// advance moves the fake clock in 50ms steps, draining the loop after
// each step so chained timers and fetch completions run in order.
func (h *harness) advance(d time.Duration) {
	const step = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.queue.Drain()
		h.checkInvariant()
	}
}

func (h *harness) render() {
	h.v.Render()
	h.queue.Drain()
	h.checkInvariant()
}

func (h *harness) checkInvariant() {
	h.t.Helper()
	for _, no := range h.v.PlacedNos() {
		require.True(h.t, h.v.Registry().IsRegistered(no), "placed line %d is not registered", no)
	}
	lowest, highest, _ := h.v.Registry().Bounds()
	for _, no := range h.v.Registry().RegisteredNos() {
		require.True(h.t, no >= lowest && no <= highest, "registered line %d outside bounds", no)
	}
}

func TestFirstRenderFetchesInitialWindowInOnePair(t *testing.T) {
	h := newHarness(t, 1000, nil)

	h.v.Observe([]int{1}, nil)
	h.advance(200 * time.Millisecond)

	assert.Equal(t, []testutil.Call{{Kind: "lines", Start: 1, End: 60}}, h.edition.Calls("lines"))
	assert.Equal(t, []testutil.Call{{Kind: "notes", Start: 1, End: 60}}, h.edition.Calls("notes"))
	assert.Equal(t, seq(1, 60), h.v.Registry().RegisteredNos())
	assert.Equal(t, seq(1, 60), h.v.PlacedNos())
	assert.Equal(t, seq(1, 60), h.v.WindowNos())
	assert.Equal(t, "1.1", h.v.ActiveActScene())
}

func TestJumpSchedulesRetirementInsteadOfRemoving(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()
	require.Equal(t, seq(1, 60), h.v.PlacedNos())

	h.v.SetVisible([]int{500})
	h.render()

	for no := 1; no <= 60; no++ {
		require.True(t, h.v.IsPlaced(no), "line %d removed immediately", no)
		require.True(t, h.v.Retiring(no), "line %d not retiring", no)
		assert.Equal(t, 3*time.Second, h.v.Scheduler().Remaining(retireKey(testutil.LineID(no))))
	}
	assert.Equal(t, seq(450, 550), h.v.WindowNos())
	assert.True(t, h.v.IsPlaced(500))

	h.advance(3 * time.Second)
	for no := 1; no <= 60; no++ {
		assert.False(t, h.v.IsPlaced(no), "line %d still placed", no)
		assert.True(t, h.v.Registry().IsRegistered(no), "line %d lost registration", no)
	}
	assert.Equal(t, seq(450, 550), h.v.PlacedNos())
}

func TestRetirementCancelledWhenLineReturns(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()
	first := h.v.Row(1)
	require.NotNil(t, first)

	for i := 0; i < 6; i++ {
		h.v.SetVisible([]int{500})
		h.render()
		h.advance(400 * time.Millisecond)
		h.v.SetVisible([]int{1})
		h.render()
		require.False(t, h.v.Retiring(1))
		h.advance(400 * time.Millisecond)
	}
	h.advance(5 * time.Second)

	assert.Same(t, first, h.v.Row(1), "row was cleared and re-placed")
	for no := 1; no <= 51; no++ {
		assert.True(t, h.v.IsPlaced(no))
	}
}

func TestRetirementRechecksWindowWhenFiring(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()
	h.v.SetVisible([]int{500})
	h.render()
	require.True(t, h.v.Retiring(10))

	// Line 10 scrolls back into view but no render runs before the timer.
	h.v.visible = map[int]struct{}{10: {}}
	h.v.Scheduler().Cancel(loop.KeyScroll)
	h.clock.Advance(3 * time.Second)
	h.queue.Drain()
	assert.True(t, h.v.IsPlaced(10))
}

func TestCompletionOnlyPlacesLinesInCurrentWindow(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.v.Render()
	h.v.SetVisible([]int{500})
	h.v.Render()
	h.queue.Drain()

	assert.True(t, h.v.Registry().IsRegistered(1))
	assert.False(t, h.v.IsPlaced(1))
	assert.Equal(t, seq(450, 550), h.v.PlacedNos())
}

func TestUnfilteredGapIsOneSpanningRange(t *testing.T) {
	h := newHarness(t, 1000, nil)
	lines, notes := fetch(t, h.edition, 470, 480)
	h.v.RegisterLines(lines, notes, false)

	h.v.SetVisible([]int{1})
	h.render()
	h.edition.ResetCalls()

	h.v.SetVisible([]int{475})
	h.render()
	assert.Equal(t, []testutil.Call{{Kind: "lines", Start: 425, End: 525}}, h.edition.Calls("lines"))
	assert.Equal(t, seq(425, 525), h.v.PlacedNos()[len(h.v.PlacedNos())-101:])
}

func TestFetchFailureLeavesGapForNextRender(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.edition.FailNext("notes", 1)

	h.v.SetVisible([]int{1})
	h.render()
	assert.Empty(t, h.v.Registry().RegisteredNos())
	assert.Empty(t, h.v.PlacedNos())

	h.render()
	assert.Equal(t, seq(1, 51), h.v.PlacedNos())
}

func TestFilteredRenderFetchesOnlyFilteredRuns(t *testing.T) {
	h := newHarness(t, 1000, nil)
	reg := h.v.Registry()
	h.v.SetFilter(func(no int) bool { return reg.ActSceneOf(no)[0] == '2' })

	h.v.SetVisible([]int{350})
	h.render()

	assert.Equal(t, []testutil.Call{{Kind: "lines", Start: 301, End: 400}}, h.edition.Calls("lines"))
	for _, no := range h.v.PlacedNos() {
		assert.Equal(t, byte('2'), reg.ActSceneOf(no)[0])
	}
	assert.Equal(t, []string{"2.1", "2.2", "2.3"}, h.v.ActScenes())
}

func TestFilteredRenderSplitsNonContiguousGaps(t *testing.T) {
	h := newHarness(t, 1000, func(opts *Options) { opts.Buffer = 3 })
	h.v.SetFilter(func(no int) bool { return no%10 == 0 || no == 501 })

	h.v.SetVisible([]int{500})
	h.render()

	assert.Equal(t, []testutil.Call{
		{Kind: "lines", Start: 470, End: 470},
		{Kind: "lines", Start: 480, End: 480},
		{Kind: "lines", Start: 490, End: 490},
		{Kind: "lines", Start: 500, End: 501},
		{Kind: "lines", Start: 510, End: 510},
		{Kind: "lines", Start: 520, End: 520},
	}, h.edition.Calls("lines"))
}

func TestIdleLoaderRegistersEverythingThenStops(t *testing.T) {
	h := newHarness(t, 1234, func(opts *Options) { opts.IdleLoading = true })

	h.v.Observe([]int{1}, nil)
	h.advance(20 * time.Second)

	assert.True(t, h.v.FullyRegistered())
	assert.Equal(t, seq(1, 1234), h.v.Registry().RegisteredNos())
	assert.Equal(t, []testutil.Call{
		{Kind: "lines", Start: 1, End: 60},
		{Kind: "lines", Start: 61, End: 560},
		{Kind: "lines", Start: 561, End: 1060},
		{Kind: "lines", Start: 1061, End: 1234},
	}, h.edition.Calls("lines"))
	assert.False(t, h.v.IsPlaced(100), "idle loading must not place lines")

	h.edition.ResetCalls()
	h.v.Observe([]int{2}, nil)
	h.advance(10 * time.Second)
	assert.Empty(t, h.edition.Calls("lines"))
	assert.False(t, h.v.Scheduler().Pending(loop.KeyIdle))
}

func TestIdleLoaderSkipsResidentBlockAfterJump(t *testing.T) {
	h := newHarness(t, 1234, func(opts *Options) { opts.IdleLoading = true })
	h.v.SetVisible([]int{1})
	h.render()
	h.v.SetVisible([]int{300})
	h.render()

	resident := h.v.Registry().RegisteredNos()
	require.Equal(t, 1, resident[0])
	lo, hi := 0, resident[len(resident)-1]
	for i := 1; i < len(resident); i++ {
		if resident[i]-resident[i-1] > 1 {
			lo = resident[i]
		}
	}
	require.Greater(t, lo, 61, "jump must leave a gap after the opening block")
	h.edition.ResetCalls()

	h.advance(4 * time.Second)

	calls := h.edition.Calls("lines")
	before := lo - 61
	assert.Equal(t, []testutil.Call{
		{Kind: "lines", Start: 61, End: lo - 1},
		{Kind: "lines", Start: hi + 1, End: hi + 500 - before},
	}, calls)
	for _, call := range calls {
		for _, no := range resident {
			assert.False(t, no >= call.Start && no <= call.End, "idle batch re-fetched resident line %d", no)
		}
	}

	h.advance(20 * time.Second)
	assert.True(t, h.v.FullyRegistered())
	assert.Equal(t, seq(1, 1234), h.v.Registry().RegisteredNos())
}

func TestIdleLoaderWaitsForVisibilityAfterFailure(t *testing.T) {
	h := newHarness(t, 700, func(opts *Options) { opts.IdleLoading = true })
	h.v.Observe([]int{1}, nil)
	h.advance(time.Second)
	h.edition.ResetCalls()

	h.edition.FailNext("lines", 1)
	h.advance(10 * time.Second)
	assert.Len(t, h.edition.Calls("lines"), 1)
	assert.False(t, h.v.FullyRegistered())

	h.v.Observe([]int{2}, nil)
	h.advance(10 * time.Second)
	assert.True(t, h.v.FullyRegistered())
}

func TestVisibilityChangeRestartsIdleTimer(t *testing.T) {
	h := newHarness(t, 700, func(opts *Options) { opts.IdleLoading = true })
	h.v.Observe([]int{1}, nil)
	h.advance(500 * time.Millisecond)
	for i := 0; i < 5; i++ {
		h.advance(2 * time.Second)
		h.v.Observe([]int{2 + i}, nil)
	}
	assert.Equal(t, []testutil.Call{{Kind: "lines", Start: 1, End: 60}}, h.edition.Calls("lines"))
}

func TestScrollRendersImmediatelyWhenStale(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()
	rendered := h.v.LastRendered()

	h.advance(100 * time.Millisecond)
	h.v.SetVisible([]int{2})
	assert.Equal(t, rendered, h.v.LastRendered(), "fresh render must be debounced")

	h.advance(1500 * time.Millisecond)
	h.v.SetVisible([]int{200})
	assert.Equal(t, h.clock.Now(), h.v.LastRendered())
}

func TestExpandedRowsAreNotRetired(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()

	lineID := testutil.LineID(7)
	require.True(t, h.v.ToggleVariants(lineID))
	assert.Equal(t, 2, h.v.Row(7).Height())
	assert.False(t, h.v.ToggleVariants(testutil.LineID(8)), "lines without notes do not expand")

	h.v.SetVisible([]int{500})
	h.render()
	assert.False(t, h.v.Retiring(7))
	assert.True(t, h.v.Retiring(8))

	h.advance(4 * time.Second)
	assert.True(t, h.v.IsPlaced(7))
	assert.False(t, h.v.IsPlaced(8))
}

func TestRewireRunsOncePerBatch(t *testing.T) {
	rewired := 0
	h := newHarness(t, 1000, func(opts *Options) { opts.OnRewire = func() { rewired++ } })
	h.v.SetVisible([]int{1})
	h.render()
	h.advance(time.Second)

	assert.Equal(t, 1, rewired)
	assert.Equal(t, 1, h.v.ObservedLineHeight())
}

func TestNavigateToPlacesAndExpands(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()

	called := 0
	require.True(t, h.v.NavigateTo(testutil.LineID(700), true, func() { called++ }))
	assert.Equal(t, 0, called)
	h.advance(time.Second)

	assert.Equal(t, 1, called)
	assert.True(t, h.v.IsPlaced(700))
	assert.True(t, h.v.Row(700).Expanded)
	assert.Equal(t, "3.1", h.v.ActiveActScene())
}

func TestNavigateToNoteUsesFirstLine(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()

	called := false
	require.True(t, h.v.NavigateTo(testutil.NoteID(14), false, func() { called = true }))
	assert.True(t, called, "already placed target resolves without polling")
	assert.Equal(t, []int{14}, h.v.VisibleNos())
}

func TestNavigateToGivesUpAfterTwentyPolls(t *testing.T) {
	h := newHarness(t, 1000, nil)
	h.v.SetVisible([]int{1})
	h.render()
	h.edition.FailNext("lines", 1000)

	called := false
	require.True(t, h.v.NavigateTo(testutil.LineID(900), false, func() { called = true }))
	h.advance(5 * time.Second)

	assert.False(t, called)
	assert.False(t, h.v.Scheduler().Pending(loop.KeyNavigatePoll))
	assert.False(t, h.v.NavigateTo("tln_nope", false, nil))
}

func TestGotoLabelPadsAndFallsBack(t *testing.T) {
	h := newHarness(t, 1000, nil)

	var found []bool
	h.v.GotoLabel("42", func(ok bool) { found = append(found, ok) })
	assert.Equal(t, []int{42}, h.v.VisibleNos())

	h.edition.SetAltID("tln_2001", testutil.LineID(800))
	h.v.GotoLabel("2001", func(ok bool) { found = append(found, ok) })
	h.queue.Drain()
	assert.Equal(t, []int{800}, h.v.VisibleNos())

	h.v.GotoLabel("9999", func(ok bool) { found = append(found, ok) })
	h.queue.Drain()
	assert.Equal(t, []bool{true, true, false}, found)
}

func TestResizeRecomputesLayout(t *testing.T) {
	h := newHarness(t, 1000, func(opts *Options) {
		opts.WindowSize = 0
		opts.Buffer = 0
	})
	h.v.Resize(130, 30)
	h.advance(900 * time.Millisecond)
	assert.Equal(t, Breakpoint(""), h.v.Breakpoint(), "resize is debounced")

	h.advance(100 * time.Millisecond)
	assert.Equal(t, BreakpointLG, h.v.Breakpoint())
	assert.Equal(t, 30, h.v.WindowSize())
	assert.Equal(t, 150, h.v.Buffer())
	assert.Equal(t, 32, h.v.MeterWidth())

	h.v.Resize(50, 12)
	h.advance(time.Second)
	assert.Equal(t, BreakpointXS, h.v.Breakpoint())
	assert.Equal(t, 0, h.v.MeterWidth())
	assert.Equal(t, 60, h.v.Buffer())
}

func TestBreakpointFor(t *testing.T) {
	cases := map[int]Breakpoint{0: BreakpointXS, 59: BreakpointXS, 60: BreakpointSM, 89: BreakpointSM, 90: BreakpointMD, 120: BreakpointLG}
	for width, want := range cases {
		assert.Equal(t, want, BreakpointFor(width), "width %d", width)
	}
	assert.False(t, BreakpointSM.ShowsMeter())
	assert.True(t, BreakpointMD.ShowsMeter())
}

func TestStartLoadsSkeletonThenRenders(t *testing.T) {
	edition := testutil.NewEdition(200)
	queue := loop.NewQueue()
	v := New(context.Background(), Options{
		Source:     edition,
		Clock:      testutil.NewFakeClock(),
		Poster:     queue,
		Spawn:      func(fn func()) { fn() },
		WindowSize: 10,
		Buffer:     50,
	})

	var startErr error
	done := false
	v.Start(func(err error) { startErr, done = err, true })
	assert.True(t, v.Busy())
	queue.Drain()

	require.True(t, done)
	require.NoError(t, startErr)
	assert.Len(t, v.Registry().Stubs(), 200)
	assert.Equal(t, seq(1, 60), v.PlacedNos())
	assert.False(t, v.Busy())
}

func TestSetHighlightsRedrawsRows(t *testing.T) {
	var seen []RowInput
	h := newHarness(t, 100, func(opts *Options) {
		opts.Renderer = rendererFunc(func(in RowInput) []string {
			seen = append(seen, in)
			return PlainRenderer{}.RenderRow(in)
		})
	})
	h.v.SetVisible([]int{1})
	h.render()
	seen = nil

	h.v.SetHighlights(map[string][]string{testutil.LineID(3): {"line"}})
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"line"}, seen[0].Highlights)

	seen = nil
	h.v.SetHighlights(nil)
	require.Len(t, seen, 1)
	assert.Empty(t, seen[0].Highlights)
}

type rendererFunc func(RowInput) []string

func (f rendererFunc) RenderRow(in RowInput) []string { return f(in) }

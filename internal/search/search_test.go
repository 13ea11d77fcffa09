package search

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvsview/internal/client"
	"nvsview/internal/loop"
	"nvsview/internal/testutil"
	"nvsview/internal/types"
	"nvsview/internal/viewer"
)

type highlightRenderer struct{}

func (highlightRenderer) RenderRow(in viewer.RowInput) []string {
	row := in.Line.Label
	if len(in.Highlights) > 0 {
		row += " [" + strings.Join(in.Highlights, ",") + "]"
	}
	out := []string{row}
	if in.Expanded {
		out = append(out, "  variants")
	}
	return out
}

type commRecorder struct {
	ids []string
}

func (c *commRecorder) NavigateTo(id string, done func()) {
	c.ids = append(c.ids, id)
	if done != nil {
		done()
	}
}

type harness struct {
	edition *testutil.Edition
	clock   *testutil.FakeClock
	queue   *loop.Queue
	client  *client.Client
	v       *viewer.Viewer
	comm    *commRecorder
	m       *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		edition: testutil.NewEdition(1200),
		clock:   testutil.NewFakeClock(),
		queue:   loop.NewQueue(),
		comm:    &commRecorder{},
	}
	srv := httptest.NewServer(h.edition.Handler())
	t.Cleanup(srv.Close)
	h.client = client.NewWithEndpoints(h.edition.Endpoints(srv.URL), h.edition.Play)

	sync := func(fn func()) { fn() }
	h.v = viewer.New(context.Background(), viewer.Options{
		Source:     h.edition,
		Renderer:   highlightRenderer{},
		Clock:      h.clock,
		Poster:     h.queue,
		Spawn:      sync,
		WindowSize: 10,
		Buffer:     50,
	})
	stubs, _, err := h.edition.Skeleton(context.Background())
	require.NoError(t, err)
	h.v.LoadSkeleton(stubs)
	h.v.Render()
	h.queue.Drain()
	h.m = NewManager(context.Background(), ManagerOptions{
		Searcher:   h.client,
		Lines:      h.v,
		Commentary: h.comm,
		Poster:     h.queue,
		Spawn:      sync,
	})
	return h
}

func (h *harness) advance(d time.Duration) {
	const step = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.queue.Drain()
	}
}

func (h *harness) search(t *testing.T, query string) {
	t.Helper()
	var got error
	called := false
	h.m.Search(client.SearchRequest{Query: query, Contents: []types.SearchScope{types.SearchScopePlaytext}}, func(err error) {
		called = true
		got = err
	})
	h.queue.Drain()
	require.True(t, called)
	require.NoError(t, got)
}

func sampleResults() types.SearchResults {
	return types.SearchResults{
		Lines: []types.LineMatch{
			{ID: testutil.LineID(500), Matches: []string{"line"}},
			{ID: testutil.LineID(700), Matches: []string{"play"}},
		},
		Variants:     []types.LineMatch{{ID: testutil.LineID(14), Matches: []string{"variant"}}},
		Commentaries: []types.CommentaryMatch{{CommID: testutil.CommentaryID(3), Matches: []string{"subject"}}},
	}
}

func TestSearchShowsFirstLineResult(t *testing.T) {
	h := newHarness(t)
	h.edition.SetSearchResults("jealous", sampleResults())

	h.search(t, " jealous ")
	assert.Equal(t, "jealous", h.m.Query())
	assert.Equal(t, KindLines, h.m.Kind())
	assert.Equal(t, 1, h.m.Current(KindLines))
	assert.Equal(t, 2, h.m.Count(KindLines))
	assert.Equal(t, []int{500}, h.v.VisibleNos())
	assert.Empty(t, h.m.Notice())

	h.advance(400 * time.Millisecond)
	row := h.v.Row(500)
	require.NotNil(t, row)
	assert.Equal(t, "500 [line]", row.String())
}

func TestResultCyclingWrapsForward(t *testing.T) {
	h := newHarness(t)
	h.edition.SetSearchResults("q", sampleResults())
	h.search(t, "q")

	h.m.Next()
	assert.Equal(t, 2, h.m.Current(KindLines))
	assert.Equal(t, []int{700}, h.v.VisibleNos())

	h.m.Next()
	assert.Equal(t, 1, h.m.Current(KindLines))
	assert.Equal(t, []int{500}, h.v.VisibleNos())

	h.m.Prev()
	assert.Equal(t, 1, h.m.Current(KindLines))
}

func TestVariantResultExpandsRow(t *testing.T) {
	h := newHarness(t)
	h.edition.SetSearchResults("q", sampleResults())
	h.search(t, "q")

	require.True(t, h.m.Show(KindVariants))
	assert.Equal(t, []int{14}, h.v.VisibleNos())
	h.advance(time.Second)

	row := h.v.Row(14)
	require.NotNil(t, row)
	assert.True(t, row.Expanded)
	assert.Equal(t, 2, row.Height())
}

func TestCommentaryResultUsesCommentaryNavigator(t *testing.T) {
	h := newHarness(t)
	results := sampleResults()
	results.Lines = nil
	results.Variants = nil
	h.edition.SetSearchResults("q", results)

	h.search(t, "q")
	assert.Equal(t, KindCommentary, h.m.Kind())
	assert.Equal(t, []string{testutil.CommentaryID(3)}, h.comm.ids)
	assert.False(t, h.m.Show(KindLines))
}

func TestEmptyResultsSurfaceNotice(t *testing.T) {
	h := newHarness(t)
	h.search(t, "nothing")

	assert.Equal(t, NoResultsNotice, h.m.Notice())
	assert.Equal(t, Kind(""), h.m.Kind())
	assert.True(t, h.m.Active())
	h.m.Next()
	assert.Empty(t, h.v.VisibleNos())
}

func TestClearDropsResults(t *testing.T) {
	h := newHarness(t)
	h.edition.SetSearchResults("q", sampleResults())
	h.search(t, "q")
	h.advance(400 * time.Millisecond)

	var cleared error = errors.New("not called")
	h.m.Clear(func(err error) { cleared = err })
	h.queue.Drain()

	require.NoError(t, cleared)
	assert.False(t, h.m.Active())
	assert.Equal(t, 0, h.m.Count(KindLines))
	assert.Equal(t, "500", h.v.Row(500).String())
}

func TestSceneFilterRestrictsWindow(t *testing.T) {
	h := newHarness(t)
	h.v.SetVisible([]int{1})
	h.advance(400 * time.Millisecond)
	require.Equal(t, 60, len(h.v.PlacedNos()))

	f := NewFilter(h.v.Registry().ActScenes())
	assert.False(t, f.Active())
	f.SelectAllScenes(false)
	f.SelectScene("2.1", true)
	require.True(t, f.SceneFiltered())

	f.Apply(h.v)
	h.advance(400 * time.Millisecond)

	assert.True(t, h.v.Filtered())
	assert.Equal(t, []string{"2.1"}, h.v.ActScenes())
	window := h.v.WindowNos()
	require.NotEmpty(t, window)
	for _, no := range window {
		assert.True(t, no >= 301 && no <= 400, "line %d outside 2.1", no)
	}

	f.SelectAllScenes(true)
	f.Apply(h.v)
	assert.False(t, h.v.Filtered())
}

func TestCharacterFilterRequiresEverySpeakerSelected(t *testing.T) {
	h := newHarness(t)
	leontes := types.Speaker{ID: "leontes", Name: "Leontes"}
	hermione := types.Speaker{ID: "hermione", Name: "Hermione"}
	h.edition.AddSpeech([]types.Speaker{leontes}, 1, 2, 3)
	h.edition.AddSpeech([]types.Speaker{hermione}, 4, 5)
	h.edition.AddSpeech([]types.Speaker{leontes, hermione}, 6)

	f := NewFilter(h.v.Registry().ActScenes())
	require.NoError(t, f.LoadCharacters(context.Background(), h.client))
	require.True(t, f.Loaded())
	assert.Len(t, f.Characters(), 2)
	assert.False(t, f.Active())

	f.ToggleCharacter("hermione")
	assert.True(t, f.CharacterFiltered())
	assert.True(t, f.Passes(2, "1.1"))
	assert.False(t, f.Passes(4, "1.1"))
	assert.False(t, f.Passes(6, "1.1"))
	assert.False(t, f.Passes(7, "1.1"))

	f.ToggleScene("1.1")
	assert.False(t, f.Passes(2, "1.1"))

	f.SelectAllCharacters(true)
	f.SelectAllScenes(true)
	assert.False(t, f.Active())
	assert.True(t, f.Passes(7, "1.1"))
}

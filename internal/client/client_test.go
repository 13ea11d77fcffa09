package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"nvsview/internal/config"
	"nvsview/internal/testutil"
	"nvsview/internal/types"
)

func newEditionClient(t *testing.T, edition *testutil.Edition) *Client {
	t.Helper()
	server := httptest.NewServer(edition.Handler())
	t.Cleanup(server.Close)
	return NewWithEndpoints(edition.Endpoints(server.URL), edition.Play)
}

func TestLinesRequestsOrdinalRange(t *testing.T) {
	var (
		mu    sync.Mutex
		query string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meta":{"total":1,"has_next_page":false},"records":[{"xml_id":"tln_0001","line_number":1,"rendered_html":"<span>x</span>","act":"1","scene":"1","line_label":"1","witness_meter":"000"}]}`))
	}))
	defer server.Close()

	c := NewWithEndpoints(map[string]string{config.EndpointLine: server.URL + "/lines/"}, "wt")
	lines, err := c.Lines(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "tln_0001" || lines[0].RenderedHTML != "<span>x</span>" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{"r_line_number=1to50", "f_play.prefix=wt", "s_line_number=asc"} {
		if !strings.Contains(query, want) {
			t.Fatalf("expected %q in query %q", want, query)
		}
	}
}

func TestSkeletonFollowsPaging(t *testing.T) {
	edition := testutil.NewEdition(25)
	c := newEditionClient(t, edition)

	stubs, total, err := c.Skeleton(context.Background())
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	if total != 25 || len(stubs) != 25 {
		t.Fatalf("unexpected skeleton: total=%d len=%d", total, len(stubs))
	}
	if stubs[24].ID != "tln_0025" || stubs[24].ActScene() != "1.1" {
		t.Fatalf("unexpected last stub: %+v", stubs[24])
	}
}

func TestLinesPagesThroughLargeRanges(t *testing.T) {
	edition := testutil.NewEdition(2500)
	c := newEditionClient(t, edition)

	lines, err := c.Lines(context.Background(), 1, 2500)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 2500 {
		t.Fatalf("expected every line across pages, got %d", len(lines))
	}
	if lines[1999].LineNumber != 2000 {
		t.Fatalf("unexpected ordering at page boundary: %d", lines[1999].LineNumber)
	}
}

func TestNotesIntersectingRange(t *testing.T) {
	edition := testutil.NewEdition(30)
	edition.AddNote("tn_span", 13, 14, 15)
	c := newEditionClient(t, edition)

	notes, err := c.Notes(context.Background(), 10, 14)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	ids := map[string]bool{}
	for _, note := range notes {
		ids[note.ID] = true
	}
	if !ids[testutil.NoteID(14)] || !ids["tn_span"] || ids[testutil.NoteID(21)] {
		t.Fatalf("unexpected notes: %v", ids)
	}
}

func TestCommentaryPageCursorDirections(t *testing.T) {
	edition := testutil.NewEdition(400)
	edition.AddCommentaries(30)
	c := newEditionClient(t, edition)

	cursor := 12
	up, err := c.CommentaryPage(context.Background(), types.CommentaryQuery{Cursor: &cursor, Descending: true, PageSize: 5})
	if err != nil {
		t.Fatalf("CommentaryPage desc: %v", err)
	}
	if len(up) != 5 || up[0].Sequence != 12 || up[4].Sequence != 8 {
		t.Fatalf("unexpected descending page: %+v", sequences(up))
	}

	down, err := c.CommentaryPage(context.Background(), types.CommentaryQuery{Cursor: &cursor, PageSize: 5})
	if err != nil {
		t.Fatalf("CommentaryPage asc: %v", err)
	}
	if len(down) != 5 || down[0].Sequence != 12 || down[4].Sequence != 16 {
		t.Fatalf("unexpected ascending page: %+v", sequences(down))
	}

	bottom, err := c.CommentaryPage(context.Background(), types.CommentaryQuery{Descending: true, PageSize: 3})
	if err != nil {
		t.Fatalf("CommentaryPage bottom: %v", err)
	}
	if got := sequences(bottom); len(got) != 3 || got[0] != 30 {
		t.Fatalf("unexpected bottom page: %v", got)
	}
}

func TestCommentaryByID(t *testing.T) {
	edition := testutil.NewEdition(100)
	edition.AddCommentaries(3)
	c := newEditionClient(t, edition)

	comm, err := c.Commentary(context.Background(), testutil.CommentaryID(2))
	if err != nil {
		t.Fatalf("Commentary: %v", err)
	}
	if comm == nil || comm.FirstLineID() != testutil.LineID(20) {
		t.Fatalf("unexpected commentary: %+v", comm)
	}
	missing, err := c.Commentary(context.Background(), "cn_nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing commentary, got %+v err=%v", missing, err)
	}
}

func TestSearchAndClear(t *testing.T) {
	edition := testutil.NewEdition(10)
	edition.SetSearchResults("heaven", types.SearchResults{
		Lines: []types.LineMatch{{ID: "tln_0003", Matches: []string{"heaven"}}},
	})
	c := newEditionClient(t, edition)

	results, err := c.Search(context.Background(), SearchRequest{Query: " heaven ", Contents: []types.SearchScope{types.SearchScopePlaytext}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results.Empty() || results.Lines[0].ID != "tln_0003" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := c.Search(context.Background(), SearchRequest{Query: "  "}); err == nil {
		t.Fatalf("expected error for blank query")
	}
	if err := c.ClearSearch(context.Background()); err != nil {
		t.Fatalf("ClearSearch: %v", err)
	}
}

func TestSpeakersParsesAggregation(t *testing.T) {
	edition := testutil.NewEdition(10)
	leontes := types.Speaker{ID: "leontes", Name: "Leontes"}
	hermione := types.Speaker{ID: "hermione", Name: "Hermione"}
	edition.AddSpeech([]types.Speaker{leontes}, 1, 2)
	edition.AddSpeech([]types.Speaker{hermione, leontes}, 3)
	c := newEditionClient(t, edition)

	chars, bySpeaker, err := c.Speakers(context.Background())
	if err != nil {
		t.Fatalf("Speakers: %v", err)
	}
	if len(chars) != 2 || chars[0].Name != "Hermione" || chars[1].Speeches != 2 {
		t.Fatalf("unexpected characters: %+v", chars)
	}
	if got := bySpeaker[3]; len(got) != 2 || got[0] != "hermione" || got[1] != "leontes" {
		t.Fatalf("unexpected speakers for line 3: %v", got)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"corpus unavailable"}`))
	}))
	defer server.Close()

	c := NewWithEndpoints(map[string]string{config.EndpointWitness: server.URL}, "wt")
	_, err := c.Witnesses(context.Background())
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "corpus unavailable" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestMissingEndpointIsAnError(t *testing.T) {
	c := NewWithEndpoints(nil, "wt")
	if _, err := c.Lines(context.Background(), 1, 2); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestWitnessMeterURL(t *testing.T) {
	c := NewWithEndpoints(map[string]string{config.EndpointWitnessMeter: "https://x/meter/"}, "wt")
	if got := c.WitnessMeterURL("0101", 12, 80, "ccc"); got != "https://x/meter/0101/12/80/ccc/0/" {
		t.Fatalf("unexpected meter url: %q", got)
	}
}

func sequences(comms []*types.Commentary) []int {
	out := make([]int, 0, len(comms))
	for _, comm := range comms {
		out = append(out, comm.Sequence)
	}
	return out
}

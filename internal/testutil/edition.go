package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"nvsview/internal/types"
)

const (
	LinesPerScene  = 100
	ScenesPerAct   = 3
	WitnessSlots   = 8
	variantEveryNo = 7
)

// Call records one request served by an Edition.
type Call struct {
	Kind  string
	Start int
	End   int
}

// Edition is an in-memory play used as a line/note/commentary source and,
// through Handler, as a fake REST backend.
type Edition struct {
	mu sync.Mutex

	Play        string
	stubs       []types.LineStub
	lines       map[int]types.Line
	notes       []types.Note
	comms       []types.Commentary
	witnesses   types.WitnessInfo
	search      map[string]types.SearchResults
	speeches    []types.Speech
	speakerAggs map[string]int
	altIDs      map[string]string

	calls    []Call
	failures map[string]int
}

// NewEdition builds a play of n lines, 100 lines per scene and three scenes
// per act. Every seventh line carries a one-variant note.
func NewEdition(n int) *Edition {
	e := &Edition{
		Play:     "wt",
		lines:    map[int]types.Line{},
		search:   map[string]types.SearchResults{},
		failures: map[string]int{},
		altIDs:   map[string]string{},
		witnesses: types.WitnessInfo{
			Count: WitnessSlots,
			Witnesses: map[string]types.Witness{
				"s_f1":   {Slots: []int{0, 1}, BibliographicEntry: "First Folio, 1623."},
				"s_f2":   {Slots: []int{2}, BibliographicEntry: "Second Folio, 1632."},
				"s_rowe": {Slots: []int{3, 4}, BibliographicEntry: "Rowe, 1709."},
				"s_pope": {Slots: []int{5, 6, 7}, BibliographicEntry: "Pope, 1723."},
			},
			Centuries: map[string]int{"17": 3, "18": 5},
		},
	}
	for no := 1; no <= n; no++ {
		act := 1 + (no-1)/(LinesPerScene*ScenesPerAct)
		scene := 1 + ((no-1)%(LinesPerScene*ScenesPerAct))/LinesPerScene
		id := LineID(no)
		meter := strings.Repeat("0", WitnessSlots+1)
		if no%variantEveryNo == 0 {
			meter = "01" + strings.Repeat("0", WitnessSlots-1)
		}
		stub := types.LineStub{
			ID:         id,
			LineNumber: no,
			Label:      strconv.Itoa(no),
			Act:        strconv.Itoa(act),
			Scene:      strconv.Itoa(scene),
		}
		e.stubs = append(e.stubs, stub)
		e.lines[no] = types.Line{
			ID:           id,
			LineNumber:   no,
			RenderedHTML: fmt.Sprintf("<span>line <b>%d</b> of the play</span>", no),
			Act:          stub.Act,
			Scene:        stub.Scene,
			Label:        stub.Label,
			WitnessMeter: meter,
		}
		if no%variantEveryNo == 0 {
			e.notes = append(e.notes, types.Note{
				ID:    NoteID(no),
				Lines: []types.LineRef{{ID: id, LineNumber: no}},
				Variants: []types.Variant{{
					ID:             "v" + strconv.Itoa(no),
					Text:           fmt.Sprintf("variant of %d", no),
					WitnessMeter:   meter,
					WitnessFormula: "F1",
				}},
			})
		}
	}
	return e
}

func LineID(no int) string {
	return fmt.Sprintf("tln_%04d", no)
}

func NoteID(no int) string {
	return fmt.Sprintf("tn_%04d", no)
}

func CommentaryID(seq int) string {
	return fmt.Sprintf("cn_%04d", seq)
}

// AddNote anchors a note with a single variant to the given ordinals.
func (e *Edition) AddNote(id string, lineNos ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	note := types.Note{ID: id, Variants: []types.Variant{{ID: id + "-v", Text: "added", WitnessFormula: "Rowe"}}}
	for _, no := range lineNos {
		note.Lines = append(note.Lines, types.LineRef{ID: LineID(no), LineNumber: no})
	}
	e.notes = append(e.notes, note)
}

// AddCommentaries appends n commentary notes with sequences 1..n, each
// anchored to line seq*10.
func (e *Edition) AddCommentaries(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for seq := 1; seq <= n; seq++ {
		lineNo := seq * 10
		e.comms = append(e.comms, types.Commentary{
			ID:            CommentaryID(seq),
			Sequence:      seq,
			Lines:         []types.LineRef{{ID: LineID(lineNo), LineNumber: lineNo}},
			LineLabel:     strconv.Itoa(lineNo),
			SubjectMatter: fmt.Sprintf("subject %d", seq),
			Contents:      fmt.Sprintf("<p>commentary %d</p>", seq),
		})
	}
}

// SetAltID makes altID resolve to lineID through LineIDForAltID.
func (e *Edition) SetAltID(altID, lineID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.altIDs[altID] = lineID
}

func (e *Edition) LineIDForAltID(_ context.Context, altID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Kind: "alt-id"})
	return e.altIDs[altID], nil
}

func (e *Edition) SetSearchResults(query string, results types.SearchResults) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search[query] = results
}

// AddSpeech attributes lines to speakers and bumps their speech counts.
func (e *Edition) AddSpeech(speakers []types.Speaker, lineNos ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	speech := types.Speech{Speaking: speakers}
	for _, no := range lineNos {
		speech.Lines = append(speech.Lines, types.LineRef{ID: LineID(no), LineNumber: no})
	}
	e.speeches = append(e.speeches, speech)
	if e.speakerAggs == nil {
		e.speakerAggs = map[string]int{}
	}
	for _, speaker := range speakers {
		e.speakerAggs[speaker.Name+"|||"+speaker.ID]++
	}
}

// FailNext makes the next n requests of kind ("lines", "notes",
// "commentary") fail.
func (e *Edition) FailNext(kind string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[kind] += n
}

func (e *Edition) Calls(kind string) []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Call
	for _, call := range e.calls {
		if kind == "" || call.Kind == kind {
			out = append(out, call)
		}
	}
	return out
}

func (e *Edition) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

func (e *Edition) Skeleton(context.Context) ([]types.LineStub, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Kind: "skeleton"})
	return append([]types.LineStub(nil), e.stubs...), len(e.stubs), nil
}

// Lines returns fresh copies so callers may mutate them.
func (e *Edition) Lines(_ context.Context, start, end int) ([]*types.Line, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Kind: "lines", Start: start, End: end})
	if err := e.consumeFailure("lines"); err != nil {
		return nil, err
	}
	var out []*types.Line
	for no := start; no <= end; no++ {
		line, ok := e.lines[no]
		if !ok {
			continue
		}
		copied := line
		out = append(out, &copied)
	}
	return out, nil
}

func (e *Edition) Notes(_ context.Context, start, end int) ([]*types.Note, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Kind: "notes", Start: start, End: end})
	if err := e.consumeFailure("notes"); err != nil {
		return nil, err
	}
	var out []*types.Note
	for _, note := range e.notes {
		for _, ref := range note.Lines {
			if ref.LineNumber >= start && ref.LineNumber <= end {
				copied := note
				copied.Lines = append([]types.LineRef(nil), note.Lines...)
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (e *Edition) CommentaryPage(_ context.Context, q types.CommentaryQuery) ([]*types.Commentary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := 0
	if q.Cursor != nil {
		start = *q.Cursor
	}
	e.calls = append(e.calls, Call{Kind: "commentary", Start: start})
	if err := e.consumeFailure("commentary"); err != nil {
		return nil, err
	}
	size := q.PageSize
	if size <= 0 {
		size = 10
	}
	ordered := append([]types.Commentary(nil), e.comms...)
	sort.Slice(ordered, func(i, j int) bool {
		if q.Descending {
			return ordered[i].Sequence > ordered[j].Sequence
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})
	var out []*types.Commentary
	for _, comm := range ordered {
		if q.Cursor != nil {
			if q.Descending && comm.Sequence > *q.Cursor {
				continue
			}
			if !q.Descending && comm.Sequence < *q.Cursor {
				continue
			}
		}
		copied := comm
		out = append(out, &copied)
		if len(out) == size {
			break
		}
	}
	return out, nil
}

func (e *Edition) Commentary(_ context.Context, id string) (*types.Commentary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Kind: "commentary-by-id"})
	if err := e.consumeFailure("commentary"); err != nil {
		return nil, err
	}
	for _, comm := range e.comms {
		if comm.ID == id {
			copied := comm
			return &copied, nil
		}
	}
	return nil, nil
}

func (e *Edition) consumeFailure(kind string) error {
	if e.failures[kind] <= 0 {
		return nil
	}
	e.failures[kind]--
	return errors.New("injected " + kind + " failure")
}

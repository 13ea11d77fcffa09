package search

import (
	"context"
	"strings"
	"time"

	"nvsview/internal/client"
	"nvsview/internal/logging"
	"nvsview/internal/loop"
	"nvsview/internal/types"
)

const (
	NoResultsNotice    = "No results for your search term were found."
	defaultFetchBudget = 30 * time.Second
)

type Kind string

const (
	KindLines      Kind = "lines"
	KindVariants   Kind = "variants"
	KindCommentary Kind = "commentaries"
)

// Kinds lists result kinds in the order the first result is chosen.
var Kinds = []Kind{KindLines, KindVariants, KindCommentary}

type Searcher interface {
	Search(ctx context.Context, req client.SearchRequest) (*types.SearchResults, error)
	ClearSearch(ctx context.Context) error
}

// LineNavigator moves the play panel. *viewer.Viewer satisfies it.
type LineNavigator interface {
	NavigateTo(id string, expandVariants bool, done func()) bool
	SetHighlights(matches map[string][]string)
}

// CommentaryNavigator moves the commentary panel. *commentary.Loader
// satisfies it.
type CommentaryNavigator interface {
	NavigateTo(id string, done func())
}

type ManagerOptions struct {
	Searcher   Searcher
	Lines      LineNavigator
	Commentary CommentaryNavigator
	Logger     logging.Logger
	Poster     loop.Poster
	Spawn      func(func())
}

// Manager runs quick searches and steps through their results one kind at
// a time. Methods run on the loop goroutine.
type Manager struct {
	ctx      context.Context
	searcher Searcher
	lines    LineNavigator
	comm     CommentaryNavigator
	logger   logging.Logger
	poster   loop.Poster
	spawn    func(func())

	query    string
	results  *types.SearchResults
	current  map[Kind]int
	kind     Kind
	notice   string
	inFlight int
}

func NewManager(ctx context.Context, opts ManagerOptions) *Manager {
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
	return &Manager{
		ctx:      ctx,
		searcher: opts.Searcher,
		lines:    opts.Lines,
		comm:     opts.Commentary,
		logger:   opts.Logger.With(logging.F("component", "search")),
		poster:   opts.Poster,
		spawn:    opts.Spawn,
		current:  map[Kind]int{},
	}
}

// Search replaces the current results and shows the first one: lines when
// there are any, then variants, then commentary.
func (m *Manager) Search(req client.SearchRequest, done func(error)) {
	req.Query = strings.TrimSpace(req.Query)
	m.inFlight++
	m.spawn(func() {
		ctx, cancel := context.WithTimeout(m.ctx, defaultFetchBudget)
		defer cancel()
		results, err := m.searcher.Search(ctx, req)
		m.poster.Post(func() {
			m.inFlight--
			if err != nil {
				m.logger.Warn("search failed", logging.F("query", req.Query), logging.F("err", err))
			} else {
				m.apply(req.Query, results)
			}
			if done != nil {
				done(err)
			}
		})
	})
}

func (m *Manager) apply(query string, results *types.SearchResults) {
	m.query = query
	m.results = results
	m.kind = ""
	m.notice = ""
	m.current = map[Kind]int{}
	for _, kind := range Kinds {
		m.current[kind] = 1
	}
	m.lines.SetHighlights(m.lineHighlights())
	if results.Empty() {
		m.notice = NoResultsNotice
		return
	}
	for _, kind := range Kinds {
		if m.Count(kind) > 0 {
			m.Show(kind)
			return
		}
	}
}

func (m *Manager) lineHighlights() map[string][]string {
	out := map[string][]string{}
	if m.results == nil {
		return out
	}
	for _, match := range m.results.Lines {
		out[match.ID] = append(out[match.ID], match.Matches...)
	}
	for _, match := range m.results.Variants {
		out[match.ID] = append(out[match.ID], match.Matches...)
	}
	return out
}

// Show switches to kind and navigates to its current result.
func (m *Manager) Show(kind Kind) bool {
	if m.Count(kind) == 0 {
		return false
	}
	m.kind = kind
	m.navigate()
	return true
}

// Next advances within the shown kind, wrapping to the first result.
func (m *Manager) Next() {
	if m.kind == "" {
		return
	}
	m.current[m.kind]++
	if m.current[m.kind] > m.Count(m.kind) {
		m.current[m.kind] = 1
	}
	m.navigate()
}

// Prev steps back within the shown kind and stops at the first result.
func (m *Manager) Prev() {
	if m.kind == "" {
		return
	}
	if m.current[m.kind] > 1 {
		m.current[m.kind]--
	}
	m.navigate()
}

func (m *Manager) navigate() {
	index := m.current[m.kind] - 1
	switch m.kind {
	case KindLines:
		m.lines.NavigateTo(m.results.Lines[index].ID, false, nil)
	case KindVariants:
		m.lines.NavigateTo(m.results.Variants[index].ID, true, nil)
	case KindCommentary:
		if m.comm != nil {
			m.comm.NavigateTo(m.results.Commentaries[index].CommID, nil)
		}
	}
}

// Clear drops the results and tells the endpoint to forget the search.
func (m *Manager) Clear(done func(error)) {
	m.results = nil
	m.query = ""
	m.kind = ""
	m.notice = ""
	m.current = map[Kind]int{}
	m.lines.SetHighlights(nil)
	m.inFlight++
	m.spawn(func() {
		ctx, cancel := context.WithTimeout(m.ctx, defaultFetchBudget)
		defer cancel()
		err := m.searcher.ClearSearch(ctx)
		m.poster.Post(func() {
			m.inFlight--
			if err != nil {
				m.logger.Warn("search clear failed", logging.F("err", err))
			}
			if done != nil {
				done(err)
			}
		})
	})
}

func (m *Manager) Count(kind Kind) int {
	if m.results == nil {
		return 0
	}
	switch kind {
	case KindLines:
		return len(m.results.Lines)
	case KindVariants:
		return len(m.results.Variants)
	case KindCommentary:
		return len(m.results.Commentaries)
	}
	return 0
}

// Current is the 1-based position within kind.
func (m *Manager) Current(kind Kind) int {
	return m.current[kind]
}

func (m *Manager) Kind() Kind {
	return m.kind
}

func (m *Manager) Query() string {
	return m.query
}

func (m *Manager) Notice() string {
	return m.notice
}

func (m *Manager) Active() bool {
	return m.results != nil
}

func (m *Manager) Busy() bool {
	return m.inFlight > 0
}

// Characters lists the speakers whose names matched, as reported by the
// endpoint.
func (m *Manager) Characters() []string {
	if m.results == nil {
		return nil
	}
	return append([]string(nil), m.results.Characters...)
}

package app

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"nvsview/internal/client"
	"nvsview/internal/search"
	"nvsview/internal/types"
)

var searchScopes = []types.SearchScope{
	types.SearchScopePlaytext,
	types.SearchScopeVariants,
	types.SearchScopeCommentary,
}

func (m *Model) openInput(mode uiMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	switch mode {
	case uiModeSearchInput:
		m.input.Placeholder = `words, "a phrase" or ~fuzzy`
	case uiModeGotoInput:
		m.input.Placeholder = "TLN, e.g. 1204"
	}
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.mode = uiModeNormal
}

func (m *Model) handleInputKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case m.keyMatches(msg, KeyCommandInputCancel):
		m.closeInput()
		return nil
	case m.keyMatches(msg, KeyCommandInputSubmit):
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.closeInput()
		if value == "" {
			return nil
		}
		if mode == uiModeSearchInput {
			m.runSearch(value)
		} else {
			m.gotoLabel(value)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// parseSearchQuery reads ~word as a fuzzy search and a quoted string as a
// phrase search.
func parseSearchQuery(raw string) client.SearchRequest {
	raw = strings.TrimSpace(raw)
	req := client.SearchRequest{Query: raw, Type: types.SearchTypeExact, Contents: searchScopes}
	switch {
	case strings.HasPrefix(raw, "~"):
		req.Query = strings.TrimSpace(raw[1:])
		req.Type = types.SearchTypeFuzzy
	case len(raw) > 1 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`):
		req.Query = strings.TrimSpace(raw[1 : len(raw)-1])
		req.Type = types.SearchTypePhrase
	}
	return req
}

func (m *Model) runSearch(raw string) {
	req := parseSearchQuery(raw)
	if req.Query == "" {
		return
	}
	m.setStatus("searching for " + req.Query)
	m.search.Search(req, func(err error) {
		if err != nil {
			m.setError("search: " + err.Error())
			return
		}
		m.focusSearchKind()
		m.searchStatus()
	})
}

func (m *Model) showSearchKind(kind search.Kind) {
	if !m.search.Show(kind) {
		m.setStatus(fmt.Sprintf("no %s results", kind))
		return
	}
	m.focusSearchKind()
	m.searchStatus()
}

// focusSearchKind moves focus to the panel showing the current result.
func (m *Model) focusSearchKind() {
	want := focusPlay
	if m.search.Kind() == search.KindCommentary {
		want = focusCommentary
	}
	if m.focus != want {
		m.focus = want
		m.layout()
	}
}

func (m *Model) searchStatus() {
	if notice := m.search.Notice(); notice != "" {
		m.setStatus(notice)
		return
	}
	parts := make([]string, 0, len(search.Kinds))
	for _, kind := range search.Kinds {
		label := fmt.Sprintf("%s %d/%d", kind, m.search.Current(kind), m.search.Count(kind))
		if kind == m.search.Kind() {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	status := fmt.Sprintf("%q  %s", m.search.Query(), strings.Join(parts, "  "))
	if chars := m.search.Characters(); len(chars) > 0 {
		status += "  speakers: " + strings.Join(chars, ", ")
	}
	m.setStatus(status)
}

func (m *Model) clearSearch() {
	m.search.Clear(func(err error) {
		if err != nil {
			m.setError("clear search: " + err.Error())
			return
		}
		m.setStatus("search cleared")
	})
}

func (m *Model) gotoLabel(entry string) {
	m.setStatus("going to " + entry)
	m.viewer.GotoLabel(entry, func(found bool) {
		if !found {
			m.setError("no line " + entry)
			return
		}
		m.focus = focusPlay
		m.layout()
		m.setStatus("line " + entry)
	})
}

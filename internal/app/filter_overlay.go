package app

import (
	"fmt"

	tea "charm.land/bubbletea/v2"

	"nvsview/internal/logging"
	"nvsview/internal/search"
)

type filterSection int

const (
	filterSectionScenes filterSection = iota
	filterSectionCharacters
)

type filterItem struct {
	section filterSection
	header  bool
	key     string
	label   string
}

// filterOverlay is the scene and character picker. Selections live on the
// search.Filter; the overlay only tracks the cursor.
type filterOverlay struct {
	items   []filterItem
	cursor  int
	loading bool
	err     string
}

func (m *Model) openFilter() tea.Cmd {
	if m.filter == nil {
		scenes := m.viewer.Registry().ActScenes()
		if len(scenes) == 0 {
			m.setStatus("play not loaded yet")
			return nil
		}
		m.filter = search.NewFilter(scenes)
	}
	m.mode = uiModeFilter
	m.rebuildFilterItems()
	if m.filter.Loaded() || m.filterView.loading {
		return nil
	}
	m.filterView.loading = true
	m.filterView.err = ""
	return fetchCharactersCmd(m.ctx, m.client)
}

func (m *Model) applyCharacters(msg charactersMsg) {
	m.filterView.loading = false
	if msg.err != nil {
		m.filterView.err = msg.err.Error()
		m.logger.Warn("speaker fetch failed", logging.F("err", msg.err))
		return
	}
	if m.filter == nil {
		return
	}
	m.filter.SetCharacters(msg.characters, msg.speakers)
	m.rebuildFilterItems()
}

func (m *Model) rebuildFilterItems() {
	f := m.filter
	items := []filterItem{{section: filterSectionScenes, header: true, label: "Scenes"}}
	for _, key := range f.ActScenes() {
		items = append(items, filterItem{section: filterSectionScenes, key: key, label: key})
	}
	items = append(items, filterItem{section: filterSectionCharacters, header: true, label: "Characters"})
	for _, character := range f.Characters() {
		label := character.Name
		if label == "" {
			label = character.ID
		}
		items = append(items, filterItem{
			section: filterSectionCharacters,
			key:     character.ID,
			label:   fmt.Sprintf("%s (%d)", label, character.Speeches),
		})
	}
	m.filterView.items = items
	m.filterView.cursor = min(max(m.filterView.cursor, 1), len(items)-1)
	if items[m.filterView.cursor].header {
		m.moveFilterCursor(1)
	}
}

func (m *Model) moveFilterCursor(delta int) {
	view := &m.filterView
	if len(view.items) == 0 || delta == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	for n := 0; n < abs(delta); n++ {
		next := view.cursor + step
		for next >= 0 && next < len(view.items) && view.items[next].header {
			next += step
		}
		if next < 0 || next >= len(view.items) {
			return
		}
		view.cursor = next
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (m *Model) filterItemSelected(item filterItem) bool {
	if item.section == filterSectionScenes {
		return m.filter.SceneSelected(item.key)
	}
	return m.filter.CharacterSelected(item.key)
}

func (m *Model) handleFilterKey(msg tea.KeyPressMsg) tea.Cmd {
	view := &m.filterView
	switch {
	case m.keyMatches(msg, KeyCommandInputCancel):
		m.mode = uiModeNormal
	case m.keyMatches(msg, KeyCommandInputSubmit):
		m.applyFilter()
	case m.keyMatches(msg, KeyCommandLineUp), msg.String() == "k":
		m.moveFilterCursor(-1)
	case m.keyMatches(msg, KeyCommandLineDown), msg.String() == "j":
		m.moveFilterCursor(1)
	case m.keyMatches(msg, KeyCommandPageUp):
		m.moveFilterCursor(-10)
	case m.keyMatches(msg, KeyCommandPageDown):
		m.moveFilterCursor(10)
	case m.keyMatches(msg, KeyCommandFilterToggle):
		if view.cursor < len(view.items) {
			item := view.items[view.cursor]
			if item.section == filterSectionScenes {
				m.filter.ToggleScene(item.key)
			} else {
				m.filter.ToggleCharacter(item.key)
			}
		}
	case m.keyMatches(msg, KeyCommandFilterAll):
		m.toggleFilterSection()
	}
	return nil
}

// toggleFilterSection selects every item in the cursor's section, or
// clears them all when they already are.
func (m *Model) toggleFilterSection() {
	view := &m.filterView
	if view.cursor >= len(view.items) {
		return
	}
	section := view.items[view.cursor].section
	all := true
	for _, item := range view.items {
		if item.section == section && !item.header && !m.filterItemSelected(item) {
			all = false
			break
		}
	}
	if section == filterSectionScenes {
		m.filter.SelectAllScenes(!all)
	} else {
		m.filter.SelectAllCharacters(!all)
	}
}

// applyFilter hands the selection to the viewer and keeps the reader near
// the line they were on.
func (m *Model) applyFilter() {
	m.mode = uiModeNormal
	m.filter.Apply(m.viewer)
	m.refreshOrdinals()
	if len(m.play.ordinals) == 0 {
		m.setError("no lines match the filter")
		return
	}
	m.ensureCursorVisible()
	m.syncVisible()
	if m.viewer.Filtered() {
		m.setStatus(fmt.Sprintf("filtered to %d lines", len(m.play.ordinals)))
	} else {
		m.setStatus("filter cleared")
	}
}

func (m *Model) filterLines(height int) []string {
	view := &m.filterView
	out := []string{headerStyle.Render("Filter")}
	rows := max(1, height-2)
	start := 0
	if view.cursor >= rows {
		start = view.cursor - rows + 1
	}
	for i := start; i < len(view.items) && len(out) < rows+1; i++ {
		item := view.items[i]
		if item.header {
			out = append(out, filterSectionStyle.Render(" "+item.label+" "))
			continue
		}
		mark := filterOffStyle.Render("[ ]")
		if m.filterItemSelected(item) {
			mark = filterOnStyle.Render("[x]")
		}
		line := mark + " " + item.label
		if i == view.cursor {
			line = selectedStyle.Render("›") + line
		} else {
			line = " " + line
		}
		out = append(out, line)
	}
	switch {
	case view.loading:
		out = append(out, placeholderStyle.Render("loading characters…"))
	case view.err != "":
		out = append(out, errorStyle.Render("characters: "+view.err))
	}
	return padLines(out, m.width, height)
}

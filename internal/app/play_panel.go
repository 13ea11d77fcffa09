package app

import (
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"nvsview/internal/render"
)

const playCursorGlyph = "▌"

// playPanel scrolls over the ordinals of the play, or the filtered subset
// of them. Placed lines draw their rows; everything else is a one-row
// placeholder so the scroll extent matches the whole play.
type playPanel struct {
	ordinals []int
	top      int
	cursor   int
	width    int
	height   int
}

func (p *playPanel) resize(width, height int) {
	p.width = max(1, width)
	p.height = max(1, height)
}

func (p *playPanel) selected() (int, bool) {
	if p.cursor < 0 || p.cursor >= len(p.ordinals) {
		return 0, false
	}
	return p.ordinals[p.cursor], true
}

// indexAtOrAfter is the position of the first ordinal >= no, clamped to
// the last entry.
func (p *playPanel) indexAtOrAfter(no int) int {
	idx := sort.SearchInts(p.ordinals, no)
	if idx >= len(p.ordinals) {
		idx = len(p.ordinals) - 1
	}
	return max(0, idx)
}

// refreshOrdinals rebuilds the panel from the skeleton and the viewer's
// filter, keeping the cursor on the nearest surviving line.
func (m *Model) refreshOrdinals() {
	selected, hadSelection := m.play.selected()
	stubs := m.viewer.Registry().Ordinals()
	nos := make([]int, 0, len(stubs))
	for _, no := range stubs {
		if m.viewer.Passes(no) {
			nos = append(nos, no)
		}
	}
	m.play.ordinals = nos
	if len(nos) == 0 {
		m.play.top, m.play.cursor = 0, 0
		return
	}
	if hadSelection {
		m.play.cursor = m.play.indexAtOrAfter(selected)
	} else {
		m.play.cursor = 0
	}
	m.play.top = min(m.play.top, m.play.cursor)
	m.ensureCursorVisible()
}

func (m *Model) rowHeight(no int) int {
	if row := m.viewer.Row(no); row != nil && row.Height() > 0 {
		return row.Height()
	}
	return 1
}

// visibleOrdinals lists the ordinals whose first row is on screen.
func (m *Model) visibleOrdinals() []int {
	var out []int
	used := 0
	for i := m.play.top; i < len(m.play.ordinals) && used < m.play.height; i++ {
		no := m.play.ordinals[i]
		out = append(out, no)
		used += m.rowHeight(no)
	}
	return out
}

func (m *Model) syncVisible() {
	if len(m.play.ordinals) == 0 || !m.playVisible() {
		return
	}
	m.viewer.SetVisible(m.visibleOrdinals())
}

func (m *Model) ensureCursorVisible() {
	p := &m.play
	if len(p.ordinals) == 0 {
		return
	}
	p.cursor = min(max(p.cursor, 0), len(p.ordinals)-1)
	if p.cursor < p.top {
		p.top = p.cursor
		return
	}
	for p.top < p.cursor {
		used := 0
		for i := p.top; i <= p.cursor; i++ {
			used += m.rowHeight(p.ordinals[i])
		}
		if used <= p.height {
			return
		}
		p.top++
	}
}

// scrollToNo brings ordinal no to the top of the panel and selects it.
// The viewer calls it when navigation lands on a line.
func (m *Model) scrollToNo(no int) {
	if len(m.play.ordinals) == 0 {
		m.refreshOrdinals()
	}
	if len(m.play.ordinals) == 0 {
		return
	}
	idx := m.play.indexAtOrAfter(no)
	m.play.cursor = idx
	m.play.top = idx
	m.syncVisible()
}

func (m *Model) moveCursor(delta int) {
	if len(m.play.ordinals) == 0 {
		return
	}
	m.play.cursor += delta
	m.ensureCursorVisible()
	m.syncVisible()
}

func (m *Model) scrollPlay(delta int) {
	if len(m.play.ordinals) == 0 {
		return
	}
	p := &m.play
	p.top = min(max(p.top+delta, 0), len(p.ordinals)-1)
	p.cursor = min(max(p.cursor, p.top), len(p.ordinals)-1)
	m.ensureCursorVisible()
	m.syncVisible()
}

func (m *Model) playLines() []string {
	var out []string
	for i := m.play.top; i < len(m.play.ordinals) && len(out) < m.play.height; i++ {
		no := m.play.ordinals[i]
		marker := " "
		if i == m.play.cursor {
			marker = selectedStyle.Render(playCursorGlyph)
		}
		row := m.viewer.Row(no)
		if row == nil || row.Height() == 0 {
			out = append(out, marker+m.placeholderRow(no))
			continue
		}
		for j, line := range row.Content {
			if j == 0 {
				out = append(out, marker+line)
				continue
			}
			out = append(out, " "+line)
		}
	}
	return out
}

func (m *Model) placeholderRow(no int) string {
	label := ""
	if stub, ok := m.viewer.Registry().Stub(no); ok {
		label = stub.Label
	}
	width := m.rows.LabelWidth
	label = runewidth.FillLeft(runewidth.Truncate(label, width, ""), width)
	return placeholderStyle.Render(label + " …")
}

// navLines is the act/scene column with the active scene marked.
func (m *Model) navLines(width, height int) []string {
	scenes := m.viewer.ActScenes()
	active := m.viewer.ActiveActScene()
	activeIdx := 0
	for i, key := range scenes {
		if key == active {
			activeIdx = i
			break
		}
	}
	start := 0
	if len(scenes) > height {
		start = min(max(activeIdx-height/2, 0), len(scenes)-height)
	}
	var out []string
	for i := start; i < len(scenes) && len(out) < height; i++ {
		key := scenes[i]
		if key == active {
			out = append(out, fitWidth(sceneActiveStyle.Render("▸"+key), width))
			continue
		}
		out = append(out, fitWidth(sceneStyle.Render(" "+key), width))
	}
	return padLines(out, width, height)
}

func (m *Model) stepScene(delta int) {
	scenes := m.viewer.ActScenes()
	if len(scenes) == 0 {
		return
	}
	active := m.viewer.ActiveActScene()
	idx := 0
	for i, key := range scenes {
		if key == active {
			idx = i
			break
		}
	}
	idx = min(max(idx+delta, 0), len(scenes)-1)
	if !m.viewer.GotoActScene(scenes[idx]) {
		m.setStatus("scene " + scenes[idx] + " is filtered out")
		return
	}
	m.setStatus("scene " + scenes[idx])
}

func (m *Model) handlePlayKey(msg tea.KeyPressMsg) {
	switch {
	case m.keyMatches(msg, KeyCommandLineUp), msg.String() == "k":
		m.moveCursor(-1)
	case m.keyMatches(msg, KeyCommandLineDown), msg.String() == "j":
		m.moveCursor(1)
	case m.keyMatches(msg, KeyCommandPageUp):
		m.moveCursor(-max(1, len(m.visibleOrdinals())-1))
	case m.keyMatches(msg, KeyCommandPageDown):
		m.moveCursor(max(1, len(m.visibleOrdinals())-1))
	case m.keyMatches(msg, KeyCommandTop):
		if len(m.play.ordinals) > 0 {
			m.scrollToNo(m.play.ordinals[0])
		}
	case m.keyMatches(msg, KeyCommandBottom):
		if n := len(m.play.ordinals); n > 0 {
			m.play.cursor = n - 1
			m.ensureCursorVisible()
			m.syncVisible()
		}
	case m.keyMatches(msg, KeyCommandScenePrev):
		m.stepScene(-1)
	case m.keyMatches(msg, KeyCommandSceneNext):
		m.stepScene(1)
	case m.keyMatches(msg, KeyCommandToggleVariants):
		m.toggleVariants()
	case m.keyMatches(msg, KeyCommandToggleLemmas):
		m.rows.HighlightLemmas = !m.rows.HighlightLemmas
		m.viewer.Redraw()
		if m.rows.HighlightLemmas {
			m.setStatus("commentary lemmas highlighted")
		} else {
			m.setStatus("commentary lemmas hidden")
		}
	case m.keyMatches(msg, KeyCommandOpenLemma):
		m.openLemma()
	case m.keyMatches(msg, KeyCommandEditions):
		m.openEditions()
	case m.keyMatches(msg, KeyCommandCopyLine):
		m.copySelectedLine(false)
	case m.keyMatches(msg, KeyCommandCopyCitation):
		m.copySelectedLine(true)
	}
}

func (m *Model) toggleVariants() {
	no, ok := m.play.selected()
	if !ok {
		return
	}
	line := m.viewer.Registry().LineByNo(no)
	if line == nil {
		m.setStatus("line not loaded yet")
		return
	}
	if !line.HasVariants() {
		m.setStatus("no variants on " + line.Label)
		return
	}
	if m.viewer.Row(no) == nil {
		m.setStatus("line not placed yet")
		return
	}
	if m.viewer.ToggleVariants(line.ID) {
		m.setStatus("variants for " + line.Label)
	} else {
		m.setStatus("variants hidden")
	}
	m.ensureCursorVisible()
	m.syncVisible()
}

// openLemma sends the commentary panel to the next lemma on the selected
// line, cycling when the line carries several.
func (m *Model) openLemma() {
	no, ok := m.play.selected()
	if !ok {
		return
	}
	line := m.viewer.Registry().LineByNo(no)
	if line == nil {
		return
	}
	lemmas := render.LemmaIDs(line.RenderedHTML)
	if len(lemmas) == 0 {
		m.setStatus("no commentary on " + line.Label)
		return
	}
	idx := m.lemmaCursor[line.ID] % len(lemmas)
	m.lemmaCursor[line.ID] = idx + 1
	id := lemmas[idx]
	m.focus = focusCommentary
	m.layout()
	m.setStatus("commentary " + id)
	m.comm.NavigateTo(id, nil)
}

func (m *Model) copySelectedLine(citation bool) {
	no, ok := m.play.selected()
	if !ok {
		return
	}
	line := m.viewer.Registry().LineByNo(no)
	if line == nil {
		m.setStatus("line not loaded yet")
		return
	}
	text := strings.TrimSpace(render.PlainText(line.RenderedHTML))
	if !citation {
		m.copyWithStatus(text, "line "+line.Label)
		return
	}
	cite := strings.ToUpper(m.cfg.Play()) + " " + line.ActScene() + ", TLN " + line.Label + ": " + text
	m.copyWithStatus(cite, "citation for "+line.Label)
}

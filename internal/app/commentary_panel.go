package app

import (
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"nvsview/internal/commentary"
)

// commentaryPanel renders the loader's frames top to bottom and remembers
// where each note starts so scrolling can be mapped back to note IDs.
type commentaryPanel struct {
	vp        viewport.Model
	entries   []*commentary.Entry
	offsets   []int
	heights   []int
	selected  string
	signature string
	width     int
}

func newCommentaryPanel() commentaryPanel {
	return commentaryPanel{vp: viewport.New(viewport.WithWidth(1), viewport.WithHeight(1))}
}

func (p *commentaryPanel) resize(width, height int) {
	p.width = max(1, width)
	p.vp.SetWidth(p.width)
	p.vp.SetHeight(max(1, height))
}

func (p *commentaryPanel) lines() []string {
	if len(p.entries) == 0 {
		return []string{placeholderStyle.Render("loading commentary…")}
	}
	return strings.Split(p.vp.View(), "\n")
}

func (p *commentaryPanel) indexOf(id string) int {
	for i, entry := range p.entries {
		if entry.Comm != nil && entry.Comm.ID == id {
			return i
		}
	}
	return -1
}

// topEntry is the note under the first visible row.
func (p *commentaryPanel) topEntry() int {
	y := p.vp.YOffset()
	for i := range p.entries {
		if p.offsets[i]+p.heights[i] > y {
			return i
		}
	}
	return -1
}

func (p *commentaryPanel) visibleIDs() []string {
	y := p.vp.YOffset()
	bottom := y + p.vp.Height()
	var out []string
	for i, entry := range p.entries {
		if entry.Comm == nil {
			continue
		}
		if p.offsets[i] < bottom && p.offsets[i]+p.heights[i] > y {
			out = append(out, entry.Comm.ID)
		}
	}
	return out
}

func displaySignature(entries []*commentary.Entry) string {
	var b strings.Builder
	for _, entry := range entries {
		if entry.Comm != nil {
			b.WriteString(entry.Comm.ID)
		}
		b.WriteByte(',')
	}
	return b.String()
}

// rebuildCommentary re-renders the panel when the loader's frames or the
// selection changed, keeping the note at the top of the panel in place.
func (m *Model) rebuildCommentary() {
	p := &m.commPanel
	entries := m.comm.Display()
	sig := displaySignature(entries) + "|" + p.selected
	if sig == p.signature {
		return
	}
	anchor, anchorDelta := "", 0
	if top := p.topEntry(); top >= 0 && p.entries[top].Comm != nil {
		anchor = p.entries[top].Comm.ID
		anchorDelta = p.vp.YOffset() - p.offsets[top]
	}

	var content []string
	p.entries = entries
	p.offsets = make([]int, len(entries))
	p.heights = make([]int, len(entries))
	for i, entry := range entries {
		block := m.styles.CommentaryBlock(entry.Comm, p.width, entry.Comm != nil && entry.Comm.ID == p.selected)
		block = append(block, "")
		p.offsets[i] = len(content)
		p.heights[i] = len(block)
		content = append(content, block...)
	}
	p.vp.SetContentLines(content)
	p.signature = sig

	if idx := p.indexOf(anchor); idx >= 0 {
		p.vp.SetYOffset(p.offsets[idx] + anchorDelta)
	}
}

// commentaryScrollTo is the loader's scroll hook.
func (m *Model) commentaryScrollTo(id string) {
	m.rebuildCommentary()
	p := &m.commPanel
	idx := p.indexOf(id)
	if idx < 0 {
		return
	}
	p.selected = id
	m.rebuildCommentary()
	p.vp.SetYOffset(p.offsets[idx])
}

func (m *Model) observeCommentary() {
	if !m.commentaryVisible() || len(m.commPanel.entries) == 0 {
		return
	}
	m.comm.Observe(m.commPanel.visibleIDs())
}

func (m *Model) scrollCommentary(delta int) {
	p := &m.commPanel
	if delta < 0 {
		p.vp.ScrollUp(-delta)
	} else {
		p.vp.ScrollDown(delta)
	}
	m.observeCommentary()
}

// selectCommentary moves the selection by delta notes and scrolls it
// into view.
func (m *Model) selectCommentary(delta int) {
	p := &m.commPanel
	if len(p.entries) == 0 {
		return
	}
	idx := p.indexOf(p.selected)
	if idx < 0 {
		idx = max(p.topEntry(), 0)
	} else {
		idx = min(max(idx+delta, 0), len(p.entries)-1)
	}
	entry := p.entries[idx]
	if entry.Comm == nil {
		return
	}
	p.selected = entry.Comm.ID
	m.rebuildCommentary()
	top := p.offsets[idx]
	bottom := top + p.heights[idx]
	y := p.vp.YOffset()
	switch {
	case top < y:
		p.vp.SetYOffset(top)
	case bottom > y+p.vp.Height():
		p.vp.SetYOffset(max(top, bottom-p.vp.Height()))
	}
	m.observeCommentary()
}

// openHeading jumps the play panel to the first line the selected note
// comments on.
func (m *Model) openHeading() {
	p := &m.commPanel
	idx := p.indexOf(p.selected)
	if idx < 0 {
		return
	}
	comm := p.entries[idx].Comm
	lineID := comm.FirstLineID()
	if lineID == "" {
		m.setStatus("note has no line")
		return
	}
	if !m.viewer.ScrollToLine(lineID) {
		m.setStatus("line " + lineID + " is not in the play")
		return
	}
	if !m.sideBySide() {
		m.focus = focusPlay
		m.layout()
	}
	m.setStatus("line " + comm.LineLabel)
}

func (m *Model) handleCommentaryKey(msg tea.KeyPressMsg) {
	switch {
	case m.keyMatches(msg, KeyCommandLineUp), msg.String() == "k":
		m.selectCommentary(-1)
	case m.keyMatches(msg, KeyCommandLineDown), msg.String() == "j":
		m.selectCommentary(1)
	case m.keyMatches(msg, KeyCommandPageUp):
		m.scrollCommentary(-m.commPanel.vp.Height())
	case m.keyMatches(msg, KeyCommandPageDown):
		m.scrollCommentary(m.commPanel.vp.Height())
	case m.keyMatches(msg, KeyCommandTop):
		m.commPanel.vp.GotoTop()
		m.observeCommentary()
	case m.keyMatches(msg, KeyCommandBottom):
		m.commPanel.vp.GotoBottom()
		m.observeCommentary()
	case m.keyMatches(msg, KeyCommandOpenHeading):
		m.openHeading()
	}
}

package app

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"nvsview/internal/render"
)

const (
	overlayHelp     = "Keys"
	overlayEditions = "Collated Editions"
)

var helpSections = []struct {
	title    string
	commands []string
}{
	{"Play", []string{
		KeyCommandLineUp, KeyCommandLineDown, KeyCommandPageUp, KeyCommandPageDown,
		KeyCommandTop, KeyCommandBottom, KeyCommandScenePrev, KeyCommandSceneNext,
		KeyCommandToggleVariants, KeyCommandToggleLemmas, KeyCommandOpenLemma,
		KeyCommandEditions, KeyCommandCopyLine, KeyCommandCopyCitation,
	}},
	{"Commentary", []string{KeyCommandOpenHeading}},
	{"Search", []string{
		KeyCommandOpenSearch, KeyCommandSearchNext, KeyCommandSearchPrev,
		KeyCommandSearchLines, KeyCommandSearchVariants, KeyCommandSearchCommentary,
		KeyCommandSearchClear, KeyCommandGotoLine,
	}},
	{"Filter", []string{KeyCommandFilter, KeyCommandFilterToggle, KeyCommandFilterAll}},
	{"General", []string{KeyCommandSwitchPanel, KeyCommandHelp, KeyCommandQuit}},
}

var commandDescriptions = map[string]string{
	KeyCommandQuit:             "quit",
	KeyCommandHelp:             "show this help",
	KeyCommandOpenSearch:       "search the play, variants and commentary",
	KeyCommandSearchNext:       "next result",
	KeyCommandSearchPrev:       "previous result",
	KeyCommandSearchClear:      "clear the search",
	KeyCommandSearchLines:      "show line results",
	KeyCommandSearchVariants:   "show variant results",
	KeyCommandSearchCommentary: "show commentary results",
	KeyCommandGotoLine:         "go to a through line number",
	KeyCommandFilter:           "filter by scene or character",
	KeyCommandSwitchPanel:      "switch between play and commentary",
	KeyCommandLineUp:           "previous line or note",
	KeyCommandLineDown:         "next line or note",
	KeyCommandPageUp:           "page up",
	KeyCommandPageDown:         "page down",
	KeyCommandTop:              "first line",
	KeyCommandBottom:           "last line",
	KeyCommandScenePrev:        "previous scene",
	KeyCommandSceneNext:        "next scene",
	KeyCommandToggleVariants:   "show or hide textual variants",
	KeyCommandToggleLemmas:     "highlight commentary lemmas",
	KeyCommandOpenLemma:        "open the commentary on this line",
	KeyCommandOpenHeading:      "go to the line a note comments on",
	KeyCommandEditions:         "list the editions collated for this line",
	KeyCommandCopyLine:         "copy the line",
	KeyCommandCopyCitation:     "copy the line with its citation",
	KeyCommandFilterToggle:     "toggle the item under the cursor",
	KeyCommandFilterAll:        "toggle every item in the section",
}

func (m *Model) helpMarkdown() string {
	var b strings.Builder
	for _, section := range helpSections {
		b.WriteString("## " + section.title + "\n\n")
		for _, command := range section.commands {
			key := m.keybindings.KeyFor(command, defaultKeybindingByCommand[command])
			fmt.Fprintf(&b, "- `%s` %s\n", key, commandDescriptions[command])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) openHelp() {
	m.openOverlay(uiModeHelp, overlayHelp, m.helpMarkdown())
}

// openEditions lists the witnesses behind the selected line's meter, and
// behind each of its variants when they are loaded.
func (m *Model) openEditions() {
	no, ok := m.play.selected()
	if !ok {
		return
	}
	line := m.viewer.Registry().LineByNo(no)
	if line == nil {
		m.setStatus("line not loaded yet")
		return
	}
	if m.witnesses == nil {
		m.setStatus("witness list not loaded yet")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# TLN %s\n\n", line.Label)
	notes := m.viewer.Registry().NotesFor(line.ID)
	if len(notes) == 0 {
		b.WriteString(render.CollatedEditions(m.witnesses, line.WitnessMeter))
	}
	for _, note := range notes {
		for _, variant := range note.Variants {
			text, _ := variant.Display()
			fmt.Fprintf(&b, "> %s%s\n\n", note.LineRange, text)
			b.WriteString(render.CollatedEditions(m.witnesses, variant.WitnessMeter))
			b.WriteString("\n")
		}
	}
	m.openOverlay(uiModeEditions, overlayEditions, b.String())
}

func (m *Model) openOverlay(mode uiMode, name, markdown string) {
	m.mode = mode
	m.overlayName = name
	m.overlaySrc = markdown
	m.renderOverlay()
	m.overlay.GotoTop()
}

func (m *Model) renderOverlay() {
	m.overlay.SetContent(render.Markdown(m.overlaySrc, max(20, m.overlay.Width()-2)))
}

func (m *Model) handleOverlayKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case m.keyMatches(msg, KeyCommandInputCancel), m.keyMatches(msg, KeyCommandQuit),
		m.mode == uiModeHelp && m.keyMatches(msg, KeyCommandHelp):
		m.mode = uiModeNormal
	case m.keyMatches(msg, KeyCommandLineUp), msg.String() == "k":
		m.overlay.ScrollUp(1)
	case m.keyMatches(msg, KeyCommandLineDown), msg.String() == "j":
		m.overlay.ScrollDown(1)
	case m.keyMatches(msg, KeyCommandPageUp):
		m.overlay.PageUp()
	case m.keyMatches(msg, KeyCommandPageDown):
		m.overlay.PageDown()
	}
	return nil
}

func (m *Model) overlayLines(height int) []string {
	title := headerStyle.Render(m.overlayName)
	box := overlayBorderStyle.Width(max(1, m.width-2)).Render(title + "\n" + m.overlay.View())
	return padLines(strings.Split(box, "\n"), m.width, height)
}

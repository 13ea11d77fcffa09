package app

type HotkeyContext int

const (
	HotkeyGlobal HotkeyContext = iota
	HotkeyPlay
	HotkeyCommentary
	HotkeySearchResults
	HotkeyInput
	HotkeyFilter
	HotkeyOverlay
)

type Hotkey struct {
	Command  string
	Key      string
	Label    string
	Context  HotkeyContext
	Priority int
}

type HotkeyResolver interface {
	ActiveContexts(*Model) []HotkeyContext
}

func DefaultHotkeys() []Hotkey {
	return []Hotkey{
		{Command: KeyCommandHelp, Key: "?", Label: "help", Context: HotkeyGlobal, Priority: 80},
		{Command: KeyCommandQuit, Key: "q", Label: "quit", Context: HotkeyGlobal, Priority: 90},
		{Command: KeyCommandSwitchPanel, Key: "tab", Label: "panel", Context: HotkeyGlobal, Priority: 70},
		{Command: KeyCommandOpenSearch, Key: "/", Label: "search", Context: HotkeyPlay, Priority: 10},
		{Command: KeyCommandGotoLine, Key: ":", Label: "go to", Context: HotkeyPlay, Priority: 11},
		{Command: KeyCommandFilter, Key: "f", Label: "filter", Context: HotkeyPlay, Priority: 12},
		{Command: KeyCommandToggleVariants, Key: "v", Label: "variants", Context: HotkeyPlay, Priority: 20},
		{Command: KeyCommandOpenLemma, Key: "c", Label: "commentary", Context: HotkeyPlay, Priority: 21},
		{Command: KeyCommandEditions, Key: "w", Label: "editions", Context: HotkeyPlay, Priority: 22},
		{Command: KeyCommandToggleLemmas, Key: "h", Label: "lemmas", Context: HotkeyPlay, Priority: 23},
		{Command: KeyCommandCopyLine, Key: "y", Label: "copy", Context: HotkeyPlay, Priority: 30},
		{Command: KeyCommandScenePrev, Key: "{/}", Label: "scene", Context: HotkeyPlay, Priority: 40},
		{Command: KeyCommandOpenHeading, Key: "enter", Label: "go to line", Context: HotkeyCommentary, Priority: 10},
		{Command: KeyCommandSearchNext, Key: "n/N", Label: "next/prev", Context: HotkeySearchResults, Priority: 5},
		{Command: KeyCommandSearchLines, Key: "1/2/3", Label: "result type", Context: HotkeySearchResults, Priority: 6},
		{Command: KeyCommandSearchClear, Key: "x", Label: "clear", Context: HotkeySearchResults, Priority: 7},
		{Command: KeyCommandInputCancel, Key: "esc", Label: "cancel", Context: HotkeyInput, Priority: 10},
		{Command: KeyCommandInputSubmit, Key: "enter", Label: "submit", Context: HotkeyInput, Priority: 11},
		{Command: KeyCommandFilterToggle, Key: "space", Label: "toggle", Context: HotkeyFilter, Priority: 10},
		{Command: KeyCommandFilterAll, Key: "a", Label: "all", Context: HotkeyFilter, Priority: 11},
		{Command: KeyCommandInputSubmit, Key: "enter", Label: "apply", Context: HotkeyFilter, Priority: 12},
		{Command: KeyCommandInputCancel, Key: "esc", Label: "close", Context: HotkeyFilter, Priority: 13},
		{Command: KeyCommandInputCancel, Key: "esc", Label: "close", Context: HotkeyOverlay, Priority: 10},
	}
}

// ResolveHotkeys rewrites hotkey labels to the keys actually bound.
func ResolveHotkeys(hotkeys []Hotkey, bindings *Keybindings) []Hotkey {
	out := make([]Hotkey, len(hotkeys))
	copy(out, hotkeys)
	for i, hk := range out {
		def := defaultKeybindingByCommand[hk.Command]
		if hk.Command == "" || hk.Key != def {
			continue
		}
		out[i].Key = bindings.KeyFor(hk.Command, hk.Key)
	}
	return out
}

type DefaultHotkeyResolver struct{}

func (DefaultHotkeyResolver) ActiveContexts(m *Model) []HotkeyContext {
	if m == nil {
		return []HotkeyContext{HotkeyGlobal}
	}
	switch m.mode {
	case uiModeSearchInput, uiModeGotoInput:
		return []HotkeyContext{HotkeyInput}
	case uiModeFilter:
		return []HotkeyContext{HotkeyFilter}
	case uiModeHelp, uiModeEditions:
		return []HotkeyContext{HotkeyOverlay}
	}
	contexts := []HotkeyContext{HotkeyGlobal}
	if m.focus == focusCommentary {
		contexts = append(contexts, HotkeyCommentary)
	} else {
		contexts = append(contexts, HotkeyPlay)
	}
	if m.search != nil && m.search.Active() {
		contexts = append(contexts, HotkeySearchResults)
	}
	return contexts
}

package app

import (
	"slices"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

const hotkeySeparator = " • "

// HotkeyRenderer builds the footer hint line for whatever the model is
// currently showing.
type HotkeyRenderer struct {
	hotkeys  []Hotkey
	resolver HotkeyResolver
}

func NewHotkeyRenderer(hotkeys []Hotkey, resolver HotkeyResolver) *HotkeyRenderer {
	return &HotkeyRenderer{hotkeys: hotkeys, resolver: resolver}
}

// Render lists the active hints in priority order. With a positive width,
// hints that would overflow it are left out rather than cut mid-word.
func (r *HotkeyRenderer) Render(m *Model, width int) string {
	if r == nil || r.resolver == nil {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, hk := range FilterHotkeys(r.hotkeys, r.resolver.ActiveContexts(m)) {
		hint := hk.Key + " " + hk.Label
		extra := xansi.StringWidth(hint)
		if used > 0 {
			extra += xansi.StringWidth(hotkeySeparator)
		}
		if width > 0 && used+extra > width {
			continue
		}
		if used > 0 {
			b.WriteString(hotkeySeparator)
		}
		b.WriteString(hint)
		used += extra
	}
	return b.String()
}

// FilterHotkeys keeps the hotkeys of the given contexts, ordered by
// priority then key, dropping repeats of the same hint.
func FilterHotkeys(hotkeys []Hotkey, contexts []HotkeyContext) []Hotkey {
	if len(hotkeys) == 0 || len(contexts) == 0 {
		return nil
	}
	var out []Hotkey
	seen := map[string]bool{}
	for _, hk := range hotkeys {
		if !slices.Contains(contexts, hk.Context) {
			continue
		}
		hint := hk.Key + "\x00" + hk.Label
		if seen[hint] {
			continue
		}
		seen[hint] = true
		out = append(out, hk)
	}
	slices.SortStableFunc(out, func(a, b Hotkey) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

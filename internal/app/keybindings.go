package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
)

const (
	KeyCommandQuit             = "ui.quit"
	KeyCommandHelp             = "ui.help"
	KeyCommandOpenSearch       = "ui.openSearch"
	KeyCommandSearchNext       = "ui.searchNext"
	KeyCommandSearchPrev       = "ui.searchPrev"
	KeyCommandSearchClear      = "ui.searchClear"
	KeyCommandSearchLines      = "ui.searchLines"
	KeyCommandSearchVariants   = "ui.searchVariants"
	KeyCommandSearchCommentary = "ui.searchCommentary"
	KeyCommandGotoLine         = "ui.gotoLine"
	KeyCommandFilter           = "ui.filter"
	KeyCommandSwitchPanel      = "ui.switchPanel"
	KeyCommandLineUp           = "ui.lineUp"
	KeyCommandLineDown         = "ui.lineDown"
	KeyCommandPageUp           = "ui.pageUp"
	KeyCommandPageDown         = "ui.pageDown"
	KeyCommandTop              = "ui.top"
	KeyCommandBottom           = "ui.bottom"
	KeyCommandScenePrev        = "ui.scenePrev"
	KeyCommandSceneNext        = "ui.sceneNext"
	KeyCommandToggleVariants   = "ui.toggleVariants"
	KeyCommandToggleLemmas     = "ui.toggleLemmas"
	KeyCommandOpenLemma        = "ui.openLemma"
	KeyCommandOpenHeading      = "ui.openHeading"
	KeyCommandEditions         = "ui.editions"
	KeyCommandCopyLine         = "ui.copyLine"
	KeyCommandCopyCitation     = "ui.copyCitation"
	KeyCommandInputSubmit      = "ui.inputSubmit"
	KeyCommandInputCancel      = "ui.inputCancel"
	KeyCommandFilterToggle     = "ui.filterToggle"
	KeyCommandFilterAll        = "ui.filterAll"
)

var defaultKeybindingByCommand = map[string]string{
	KeyCommandQuit:             "q",
	KeyCommandHelp:             "?",
	KeyCommandOpenSearch:       "/",
	KeyCommandSearchNext:       "n",
	KeyCommandSearchPrev:       "N",
	KeyCommandSearchClear:      "x",
	KeyCommandSearchLines:      "1",
	KeyCommandSearchVariants:   "2",
	KeyCommandSearchCommentary: "3",
	KeyCommandGotoLine:         ":",
	KeyCommandFilter:           "f",
	KeyCommandSwitchPanel:      "tab",
	KeyCommandLineUp:           "up",
	KeyCommandLineDown:         "down",
	KeyCommandPageUp:           "pgup",
	KeyCommandPageDown:         "pgdown",
	KeyCommandTop:              "g",
	KeyCommandBottom:           "G",
	KeyCommandScenePrev:        "{",
	KeyCommandSceneNext:        "}",
	KeyCommandToggleVariants:   "v",
	KeyCommandToggleLemmas:     "h",
	KeyCommandOpenLemma:        "c",
	KeyCommandOpenHeading:      "enter",
	KeyCommandEditions:         "w",
	KeyCommandCopyLine:         "y",
	KeyCommandCopyCitation:     "Y",
	KeyCommandInputSubmit:      "enter",
	KeyCommandInputCancel:      "esc",
	KeyCommandFilterToggle:     "space",
	KeyCommandFilterAll:        "a",
}

type Keybindings struct {
	byCommand map[string]string
	remap     map[string]string
}

type keybindingEntry struct {
	Command string `json:"command"`
	Key     string `json:"key"`
}

func DefaultKeybindings() *Keybindings {
	return NewKeybindings(nil)
}

// NewKeybindings applies overrides on top of the defaults. Overridden keys
// remap to the default key of their command so handlers match on one
// canonical key; a key claimed by two overrides is left unmapped.
func NewKeybindings(overrides map[string]string) *Keybindings {
	byCommand := make(map[string]string, len(defaultKeybindingByCommand))
	for command, key := range defaultKeybindingByCommand {
		byCommand[command] = key
	}
	for command, key := range overrides {
		command = strings.TrimSpace(command)
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := defaultKeybindingByCommand[command]; !ok {
			continue
		}
		byCommand[command] = key
	}
	remap := map[string]string{}
	ambiguous := map[string]struct{}{}
	for _, command := range KnownKeybindingCommands() {
		defaultKey := defaultKeybindingByCommand[command]
		key := byCommand[command]
		if key == defaultKey {
			continue
		}
		if _, bad := ambiguous[key]; bad {
			continue
		}
		if existing, ok := remap[key]; ok && existing != defaultKey {
			delete(remap, key)
			ambiguous[key] = struct{}{}
			continue
		}
		remap[key] = defaultKey
	}
	return &Keybindings{byCommand: byCommand, remap: remap}
}

func LoadKeybindings(path string) (*Keybindings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultKeybindings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultKeybindings(), nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return DefaultKeybindings(), nil
	}
	overrides, err := parseKeybindingOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("parse keybindings %s: %w", path, err)
	}
	return NewKeybindings(overrides), nil
}

func (k *Keybindings) KeyFor(command, fallback string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return fallback
	}
	if k != nil {
		if key := strings.TrimSpace(k.byCommand[command]); key != "" {
			return key
		}
	}
	if key := defaultKeybindingByCommand[command]; key != "" {
		return key
	}
	return fallback
}

func (k *Keybindings) Bindings() map[string]string {
	out := make(map[string]string, len(defaultKeybindingByCommand))
	for _, command := range KnownKeybindingCommands() {
		out[command] = k.KeyFor(command, defaultKeybindingByCommand[command])
	}
	return out
}

func (k *Keybindings) Remap(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || k == nil {
		return key
	}
	if canonical, ok := k.remap[key]; ok && canonical != "" {
		return canonical
	}
	return key
}

func (m *Model) keyString(msg tea.KeyMsg) string {
	if m.keybindings == nil {
		return msg.String()
	}
	return m.keybindings.Remap(msg.String())
}

// keyMatches reports whether msg triggers command, either through its
// bound key or the canonical default a remapped key resolves to.
func (m *Model) keyMatches(msg tea.KeyMsg, command string) bool {
	fallback := defaultKeybindingByCommand[command]
	if bound := m.keybindings.KeyFor(command, fallback); bound != "" && msg.String() == bound {
		return true
	}
	return fallback != "" && m.keyString(msg) == fallback
}

func parseKeybindingOverrides(data []byte) (map[string]string, error) {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil, nil
	}
	out := map[string]string{}
	if data[0] == '[' {
		var entries []keybindingEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		for _, entry := range entries {
			out[strings.TrimSpace(entry.Command)] = strings.TrimSpace(entry.Key)
		}
		return out, nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for command, key := range raw {
		out[strings.TrimSpace(command)] = strings.TrimSpace(key)
	}
	return out, nil
}

func KnownKeybindingCommands() []string {
	keys := make([]string, 0, len(defaultKeybindingByCommand))
	for command := range defaultKeybindingByCommand {
		keys = append(keys, command)
	}
	sort.Strings(keys)
	return keys
}

const (
	keyScopeNormal = "normal"
	keyScopeInput  = "input"
	keyScopeFilter = "filter"
)

type KeybindingConflict struct {
	Key      string
	Scope    string
	Commands []string
}

func (c KeybindingConflict) Message() string {
	return fmt.Sprintf("keybinding conflict: %s in %s (%s)", c.Key, c.Scope, strings.Join(c.Commands, ", "))
}

// DetectKeybindingConflicts lists keys bound to more than one command
// within the same input scope.
func DetectKeybindingConflicts(bindings *Keybindings) []KeybindingConflict {
	if bindings == nil {
		bindings = DefaultKeybindings()
	}
	type scopeKey struct {
		scope string
		key   string
	}
	byScopeKey := map[scopeKey][]string{}
	for _, command := range KnownKeybindingCommands() {
		bound := bindings.KeyFor(command, defaultKeybindingByCommand[command])
		for _, scope := range keybindingScopesFor(command) {
			k := scopeKey{scope: scope, key: bound}
			byScopeKey[k] = append(byScopeKey[k], command)
		}
	}
	var conflicts []KeybindingConflict
	for scoped, commands := range byScopeKey {
		if len(commands) < 2 {
			continue
		}
		slices.Sort(commands)
		conflicts = append(conflicts, KeybindingConflict{Key: scoped.key, Scope: scoped.scope, Commands: commands})
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Scope != conflicts[j].Scope {
			return conflicts[i].Scope < conflicts[j].Scope
		}
		return conflicts[i].Key < conflicts[j].Key
	})
	return conflicts
}

func keybindingScopesFor(command string) []string {
	switch command {
	case KeyCommandInputSubmit, KeyCommandInputCancel:
		return []string{keyScopeInput, keyScopeFilter}
	case KeyCommandFilterToggle, KeyCommandFilterAll:
		return []string{keyScopeFilter}
	case KeyCommandLineUp, KeyCommandLineDown, KeyCommandTop, KeyCommandBottom:
		return []string{keyScopeNormal, keyScopeFilter}
	case KeyCommandQuit:
		return []string{keyScopeNormal, keyScopeFilter}
	default:
		return []string{keyScopeNormal}
	}
}

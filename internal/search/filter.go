package search

import (
	"context"

	"nvsview/internal/types"
	"nvsview/internal/viewer"
)

type SpeakerSource interface {
	Speakers(ctx context.Context) ([]types.Character, map[int][]string, error)
}

// Filter holds the scene and character selections. Everything starts
// selected, which leaves the play unfiltered.
type Filter struct {
	actScenes      []string
	selectedScenes map[string]bool
	characters     []types.Character
	selectedChars  map[string]bool
	lineSpeakers   map[int][]string
	loaded         bool
}

func NewFilter(actScenes []string) *Filter {
	f := &Filter{
		actScenes:      append([]string(nil), actScenes...),
		selectedScenes: map[string]bool{},
		selectedChars:  map[string]bool{},
		lineSpeakers:   map[int][]string{},
	}
	f.SelectAllScenes(true)
	return f
}

// LoadCharacters fetches the speaker aggregation once. Later calls are
// no-ops.
func (f *Filter) LoadCharacters(ctx context.Context, src SpeakerSource) error {
	if f.loaded {
		return nil
	}
	characters, lineSpeakers, err := src.Speakers(ctx)
	if err != nil {
		return err
	}
	f.SetCharacters(characters, lineSpeakers)
	return nil
}

func (f *Filter) SetCharacters(characters []types.Character, lineSpeakers map[int][]string) {
	f.characters = append([]types.Character(nil), characters...)
	f.lineSpeakers = lineSpeakers
	if f.lineSpeakers == nil {
		f.lineSpeakers = map[int][]string{}
	}
	f.loaded = true
	f.SelectAllCharacters(true)
}

func (f *Filter) Loaded() bool {
	return f.loaded
}

func (f *Filter) ActScenes() []string {
	return append([]string(nil), f.actScenes...)
}

func (f *Filter) Characters() []types.Character {
	return append([]types.Character(nil), f.characters...)
}

func (f *Filter) SceneSelected(key string) bool {
	return f.selectedScenes[key]
}

func (f *Filter) CharacterSelected(id string) bool {
	return f.selectedChars[id]
}

func (f *Filter) SelectScene(key string, on bool) {
	if on {
		f.selectedScenes[key] = true
		return
	}
	delete(f.selectedScenes, key)
}

func (f *Filter) ToggleScene(key string) {
	f.SelectScene(key, !f.selectedScenes[key])
}

func (f *Filter) SelectAllScenes(on bool) {
	f.selectedScenes = map[string]bool{}
	if !on {
		return
	}
	for _, key := range f.actScenes {
		f.selectedScenes[key] = true
	}
}

func (f *Filter) SelectCharacter(id string, on bool) {
	if on {
		f.selectedChars[id] = true
		return
	}
	delete(f.selectedChars, id)
}

func (f *Filter) ToggleCharacter(id string) {
	f.SelectCharacter(id, !f.selectedChars[id])
}

func (f *Filter) SelectAllCharacters(on bool) {
	f.selectedChars = map[string]bool{}
	if !on {
		return
	}
	for _, character := range f.characters {
		f.selectedChars[character.ID] = true
	}
}

func (f *Filter) SceneFiltered() bool {
	return len(f.selectedScenes) != len(f.actScenes)
}

func (f *Filter) CharacterFiltered() bool {
	return len(f.selectedChars) != len(f.characters)
}

func (f *Filter) Active() bool {
	return f.SceneFiltered() || f.CharacterFiltered()
}

// Passes reports whether the line with ordinal no and act/scene key is
// shown: its scene is selected and every speaker of it is selected.
func (f *Filter) Passes(no int, actScene string) bool {
	if f.SceneFiltered() && !f.selectedScenes[actScene] {
		return false
	}
	if !f.CharacterFiltered() {
		return true
	}
	speakers, ok := f.lineSpeakers[no]
	if !ok {
		return false
	}
	for _, id := range speakers {
		if !f.selectedChars[id] {
			return false
		}
	}
	return true
}

// Apply injects the predicate into v, or removes it when nothing is
// filtered, and renders.
func (f *Filter) Apply(v *viewer.Viewer) {
	if !f.Active() {
		v.SetFilter(nil)
		v.Render()
		return
	}
	reg := v.Registry()
	scenes := map[string]bool{}
	for key := range f.selectedScenes {
		scenes[key] = true
	}
	chars := map[string]bool{}
	for id := range f.selectedChars {
		chars[id] = true
	}
	snapshot := &Filter{
		actScenes:      f.actScenes,
		selectedScenes: scenes,
		characters:     f.characters,
		selectedChars:  chars,
		lineSpeakers:   f.lineSpeakers,
		loaded:         f.loaded,
	}
	v.SetFilter(func(no int) bool {
		return snapshot.Passes(no, reg.ActSceneOf(no))
	})
	v.Render()
}

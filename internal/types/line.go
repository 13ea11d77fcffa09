package types

import "strings"

const (
	ActSceneDramatisPersonae = "DP"
	ActSceneTrailer          = "TR"
)

// LineStub is the skeleton record fetched for every line at startup.
type LineStub struct {
	ID         string `json:"xml_id"`
	LineNumber int    `json:"line_number"`
	Label      string `json:"line_label"`
	Act        string `json:"act"`
	Scene      string `json:"scene"`
}

func (s LineStub) ActScene() string {
	return MakeActScene(s.Act, s.Scene)
}

type Line struct {
	ID           string `json:"xml_id"`
	LineNumber   int    `json:"line_number"`
	RenderedHTML string `json:"rendered_html"`
	Act          string `json:"act"`
	Scene        string `json:"scene"`
	Label        string `json:"line_label"`
	WitnessMeter string `json:"witness_meter"`

	// Notes holds the IDs of notes anchored to this line, in discovery order.
	Notes []string `json:"-"`
}

func (l *Line) ActScene() string {
	if l == nil {
		return ""
	}
	return MakeActScene(l.Act, l.Scene)
}

// HasVariants reports whether any witness diverges on this line. The meter
// string leads with the count of divergent witnesses.
func (l *Line) HasVariants() bool {
	if l == nil {
		return false
	}
	return MeterHasVariants(l.WitnessMeter)
}

func (l *Line) HasNote(noteID string) bool {
	if l == nil {
		return false
	}
	for _, id := range l.Notes {
		if id == noteID {
			return true
		}
	}
	return false
}

func MakeActScene(act, scene string) string {
	act = strings.TrimSpace(act)
	scene = strings.TrimSpace(scene)
	switch act {
	case "Dramatis Personae":
		return ActSceneDramatisPersonae
	case "Trailer":
		return ActSceneTrailer
	}
	return act + "." + scene
}

// MeterHasVariants mirrors parseInt on the meter string: a leading run of
// digits whose value is greater than zero.
func MeterHasVariants(meter string) bool {
	for _, r := range strings.TrimSpace(meter) {
		if r < '0' || r > '9' {
			return false
		}
		if r != '0' {
			return true
		}
	}
	return false
}

package render

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Styles groups the lipgloss styles used for rows and panels.
type Styles struct {
	Label          lipgloss.Style
	Text           lipgloss.Style
	Bold           lipgloss.Style
	Italic         lipgloss.Style
	Small          lipgloss.Style
	Lemma          lipgloss.Style
	Match          lipgloss.Style
	Variant        lipgloss.Style
	VariantRange   lipgloss.Style
	Formula        lipgloss.Style
	Description    lipgloss.Style
	MeterOn        lipgloss.Style
	MeterOff       lipgloss.Style
	MeterSelective lipgloss.Style
	Century        lipgloss.Style
	CommHeading    lipgloss.Style
	CommSelected   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Label:          lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Text:           lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Bold:           lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		Italic:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true),
		Small:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Lemma:          lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Underline(true),
		Match:          lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true),
		Variant:        lipgloss.NewStyle().Foreground(lipgloss.Color("180")),
		VariantRange:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Formula:        lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		Description:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		MeterOn:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		MeterOff:       lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		MeterSelective: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		Century:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236")),
		CommHeading:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),
		CommSelected:   lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236")).Bold(true),
	}
}

// PlainStyles renders without any escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Label: plain, Text: plain, Bold: plain, Italic: plain, Small: plain,
		Lemma: plain, Match: plain, Variant: plain, VariantRange: plain,
		Formula: plain, Description: plain, MeterOn: plain, MeterOff: plain,
		MeterSelective: plain, Century: plain, CommHeading: plain, CommSelected: plain,
	}
}

func (s Styles) segment(seg Segment, lemmas bool) string {
	switch {
	case seg.Match:
		return s.Match.Render(seg.Text)
	case lemmas && seg.LemmaID != "":
		return s.Lemma.Render(seg.Text)
	case seg.Bold:
		return s.Bold.Render(seg.Text)
	case seg.Italic:
		return s.Italic.Render(seg.Text)
	case seg.Small:
		return s.Small.Render(seg.Text)
	default:
		return s.Text.Render(seg.Text)
	}
}

// Styled renders segments on one line; breaks become spaces.
func (s Styles) Styled(segments []Segment, lemmas bool) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Break {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(s.segment(seg, lemmas))
	}
	return b.String()
}

package render

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"nvsview/internal/viewer"
)

const defaultLabelWidth = 5

// RowRenderer draws a placed line as "label meter text", followed by one
// row per variant when the line is expanded. The meter column only
// appears at breakpoints that show meters.
type RowRenderer struct {
	Styles          Styles
	LabelWidth      int
	HighlightLemmas bool
}

func NewRowRenderer(styles Styles, highlightLemmas bool) *RowRenderer {
	return &RowRenderer{Styles: styles, LabelWidth: defaultLabelWidth, HighlightLemmas: highlightLemmas}
}

func (r *RowRenderer) RenderRow(in viewer.RowInput) []string {
	if in.Line == nil {
		return nil
	}
	labelWidth := r.LabelWidth
	if labelWidth <= 0 {
		labelWidth = defaultLabelWidth
	}
	label := runewidth.Truncate(in.Line.Label, labelWidth, "")
	label = runewidth.FillLeft(label, labelWidth)

	var b strings.Builder
	b.WriteString(r.Styles.Label.Render(label))
	b.WriteByte(' ')
	meterShown := in.Breakpoint.ShowsMeter() && in.MeterWidth > 0
	if meterShown {
		b.WriteString(r.meterCell(in.Line.WitnessMeter, in.MeterWidth))
		b.WriteByte(' ')
	}
	segments := MarkMatches(ParseHTML(in.Line.RenderedHTML), in.Highlights)
	b.WriteString(r.Styles.Styled(segments, r.HighlightLemmas))
	out := []string{b.String()}
	if !in.Expanded {
		return out
	}

	indent := strings.Repeat(" ", labelWidth+1)
	for _, note := range in.Notes {
		for _, variant := range note.Variants {
			var v strings.Builder
			v.WriteString(indent)
			if meterShown {
				v.WriteString(r.meterCell(variant.WitnessMeter, in.MeterWidth))
				v.WriteByte(' ')
			}
			if note.LineRange != "" {
				v.WriteString(r.Styles.VariantRange.Render(note.LineRange))
			}
			text, usedDescription := variant.Display()
			if usedDescription {
				v.WriteString(r.Styles.Description.Render(text))
			} else {
				words := MarkMatches(ParseHTML(text), in.Highlights)
				for _, seg := range words {
					if seg.Match {
						v.WriteString(r.Styles.Match.Render(seg.Text))
						continue
					}
					v.WriteString(r.Styles.Variant.Render(seg.Text))
				}
			}
			if formula := strings.TrimSpace(variant.WitnessFormula); formula != "" {
				v.WriteString("  ")
				v.WriteString(r.Styles.Formula.Render(PlainText(formula)))
			}
			if desc := strings.TrimSpace(variant.DescriptionText()); desc != "" && !usedDescription {
				v.WriteByte(' ')
				v.WriteString(r.Styles.Description.Render(desc))
			}
			out = append(out, v.String())
		}
	}
	return out
}

func (r *RowRenderer) meterCell(indicators string, width int) string {
	meter := r.Styles.Meter(indicators, width)
	if meter == "" {
		return strings.Repeat(" ", width)
	}
	return meter
}

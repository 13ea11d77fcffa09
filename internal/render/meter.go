package render

import (
	"math"
	"strings"

	"nvsview/internal/types"
)

const (
	meterOnGlyph        = "█"
	meterOffGlyph       = "░"
	meterSelectiveGlyph = "◆"
)

// Meter draws witness indicators as a bar of width cells. Each slot gets
// an equal share of the width; a trailing '1' marks selective quotation.
func (s Styles) Meter(indicators string, width int) string {
	indicators = strings.TrimSpace(indicators)
	if width <= 0 || len(indicators) < 2 {
		return ""
	}
	slots := indicators[:len(indicators)-1]
	selective := indicators[len(indicators)-1] == '1'
	barWidth := width
	if selective {
		barWidth--
	}
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		slot := i * len(slots) / barWidth
		if slots[slot] != '0' {
			b.WriteString(s.MeterOn.Render(meterOnGlyph))
		} else {
			b.WriteString(s.MeterOff.Render(meterOffGlyph))
		}
	}
	if selective {
		b.WriteString(s.MeterSelective.Render(meterSelectiveGlyph))
	}
	return b.String()
}

// CenturyHeader lays out the witness century histogram over the meter
// column, each century taking width in proportion to its witness count.
func (s Styles) CenturyHeader(info *types.WitnessInfo, width int) string {
	centuries := info.OrderedCenturies()
	if width <= 0 || len(centuries) == 0 {
		return ""
	}
	total := 0
	for _, c := range centuries {
		total += c.Count
	}
	if total == 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	running := 0
	for i, c := range centuries {
		running += c.Count
		end := int(math.Round(float64(running) * float64(width) / float64(total)))
		if i == len(centuries)-1 {
			end = width
		}
		cell := end - used
		used = end
		if cell <= 0 {
			continue
		}
		b.WriteString(s.Century.Render(fitCentered(centuryLabel(c.Century), cell)))
	}
	return b.String()
}

func centuryLabel(century string) string {
	century = strings.TrimSpace(century)
	switch {
	case strings.HasSuffix(century, "1") && !strings.HasSuffix(century, "11"):
		return century + "st"
	case strings.HasSuffix(century, "2") && !strings.HasSuffix(century, "12"):
		return century + "nd"
	case strings.HasSuffix(century, "3") && !strings.HasSuffix(century, "13"):
		return century + "rd"
	}
	return century + "th"
}

func fitCentered(label string, width int) string {
	if len(label) > width {
		label = label[:width]
	}
	left := (width - len(label)) / 2
	return strings.Repeat(" ", left) + label + strings.Repeat(" ", width-len(label)-left)
}

// CollatedEditions is the markdown shown for a variant's meter: the
// bibliographic entry of every witness that diverges.
func CollatedEditions(info *types.WitnessInfo, indicators string) string {
	sigla := info.SiglaForMeter(indicators)
	var b strings.Builder
	b.WriteString("### Collated Editions for Variant\n\n")
	if len(sigla) == 0 {
		b.WriteString("No collated editions diverge here.\n")
		return b.String()
	}
	for _, siglum := range sigla {
		entry := strings.TrimSpace(PlainText(info.Witnesses[siglum].BibliographicEntry))
		b.WriteString("- **" + siglum + "**")
		if entry != "" {
			b.WriteString(" " + escapeMarkdown(entry))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

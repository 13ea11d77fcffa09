package app

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// padLines truncates or pads every line to exactly width cells and the
// block to exactly height lines.
func padLines(lines []string, width, height int) []string {
	out := make([]string, 0, max(height, len(lines)))
	for _, line := range lines {
		if height > 0 && len(out) == height {
			break
		}
		out = append(out, fitWidth(line, width))
	}
	for len(out) < height {
		out = append(out, strings.Repeat(" ", max(width, 0)))
	}
	return out
}

func fitWidth(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(line) > width {
		line = xansi.Truncate(line, width, "…")
	}
	if w := xansi.StringWidth(line); w < width {
		line += strings.Repeat(" ", width-w)
	}
	return line
}

// joinColumns places blocks of equal height side by side.
func joinColumns(columns ...[]string) []string {
	height := 0
	for _, col := range columns {
		height = max(height, len(col))
	}
	out := make([]string, height)
	for i := range out {
		var b strings.Builder
		for _, col := range columns {
			if i < len(col) {
				b.WriteString(col[i])
			}
		}
		out[i] = b.String()
	}
	return out
}

package render

import (
	"strings"

	"charm.land/lipgloss/v2"

	"nvsview/internal/types"
)

// CommentaryHeading is "<line label>: <subject matter>".
func CommentaryHeading(c *types.Commentary) string {
	if c == nil {
		return ""
	}
	label := strings.TrimSpace(c.LineLabel)
	subject := strings.TrimSpace(PlainText(c.SubjectMatter))
	switch {
	case label == "":
		return subject
	case subject == "":
		return label
	}
	return label + ": " + subject
}

// CommentaryBlock renders one commentary note wrapped to width: the
// heading line followed by its paragraphs.
func (s Styles) CommentaryBlock(c *types.Commentary, width int, selected bool) []string {
	if c == nil {
		return nil
	}
	if width <= 0 {
		width = 80
	}
	heading := s.CommHeading
	if selected {
		heading = s.CommSelected
	}
	out := strings.Split(heading.Width(width).Render(CommentaryHeading(c)), "\n")
	body := lipgloss.NewStyle().Width(width)
	var para []Segment
	flush := func() {
		if len(para) == 0 {
			return
		}
		out = append(out, strings.Split(body.Render(s.Styled(para, false)), "\n")...)
		para = nil
	}
	for _, seg := range ParseHTML(c.Contents) {
		if seg.Break {
			flush()
			continue
		}
		para = append(para, seg)
	}
	flush()
	return out
}

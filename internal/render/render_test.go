package render

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvsview/internal/types"
	"nvsview/internal/viewer"
)

func TestParseHTMLCollapsesWhitespaceAndStyles(t *testing.T) {
	segments := ParseHTML("<span>line   <b>5</b>\n of the <i>play</i></span>")
	assert.Equal(t, "line 5 of the play", Join(segments))

	var bold, italic []string
	for _, seg := range segments {
		if seg.Bold {
			bold = append(bold, strings.TrimSpace(seg.Text))
		}
		if seg.Italic {
			italic = append(italic, seg.Text)
		}
	}
	assert.Equal(t, []string{"5"}, bold)
	assert.Equal(t, []string{"play"}, italic)
}

func TestParseHTMLBreaksParagraphs(t *testing.T) {
	assert.Equal(t, "one\ntwo & three", PlainText("<p>one</p><p>two &amp; three</p>"))
	assert.Equal(t, "a\nb", PlainText("a<br/>b"))
	assert.Equal(t, "", PlainText(""))
}

func TestLemmaIDs(t *testing.T) {
	src := `<comspan class="commentary-lemma-cn_0003 highlight">Sir</comspan>, smile ` +
		`<comspan class="commentary-lemma-cn_0004">his</comspan> <comspan class="commentary-lemma-cn_0003">wife</comspan>`
	assert.Equal(t, []string{"cn_0003", "cn_0004"}, LemmaIDs(src))
	assert.Equal(t, "cn_0009", LemmaIDFromClass("highlight commentary-lemma-cn_0009"))
	assert.Equal(t, "", LemmaIDFromClass("highlight"))
}

func TestMarkMatchesSplitsSegments(t *testing.T) {
	got := MarkMatches([]Segment{{Text: "the play of"}}, []string{"PLAY", "of", " "})
	require.Len(t, got, 4)
	assert.Equal(t, Segment{Text: "the "}, got[0])
	assert.Equal(t, Segment{Text: "play", Match: true}, got[1])
	assert.Equal(t, Segment{Text: " "}, got[2])
	assert.Equal(t, Segment{Text: "of", Match: true}, got[3])

	unchanged := []Segment{{Text: "nothing"}}
	assert.Equal(t, unchanged, MarkMatches(unchanged, nil))
}

func TestMeter(t *testing.T) {
	s := PlainStyles()
	assert.Equal(t, "░█░░░░░░", s.Meter("010000000", 8))
	assert.Equal(t, "██░░░░░◆", s.Meter("10001", 8))
	assert.Equal(t, "", s.Meter("", 8))
	assert.Equal(t, "", s.Meter("010", 0))
}

func witnessInfo() *types.WitnessInfo {
	return &types.WitnessInfo{
		Count: 8,
		Witnesses: map[string]types.Witness{
			"s_f1":   {Slots: []int{0, 1}, BibliographicEntry: "<i>First Folio</i>, 1623."},
			"s_f2":   {Slots: []int{2}, BibliographicEntry: "Second Folio, 1632."},
			"s_rowe": {Slots: []int{3, 4}, BibliographicEntry: "Rowe, 1709."},
		},
		Centuries: map[string]int{"18": 5, "17": 3},
	}
}

func TestCenturyHeaderIsProportional(t *testing.T) {
	got := xansi.Strip(PlainStyles().CenturyHeader(witnessInfo(), 16))
	assert.Equal(t, " 17th    18th   ", got)
	assert.Equal(t, "", PlainStyles().CenturyHeader(&types.WitnessInfo{}, 16))
}

func TestCenturyLabel(t *testing.T) {
	assert.Equal(t, "21st", centuryLabel("21"))
	assert.Equal(t, "11th", centuryLabel("11"))
	assert.Equal(t, "17th", centuryLabel("17"))
}

func TestCollatedEditions(t *testing.T) {
	md := CollatedEditions(witnessInfo(), "010100000")
	assert.Contains(t, md, "### Collated Editions for Variant")
	assert.Contains(t, md, "- **s_f1** First Folio, 1623.")
	assert.Contains(t, md, "- **s_rowe** Rowe, 1709.")
	assert.NotContains(t, md, "s_f2")

	assert.Contains(t, CollatedEditions(witnessInfo(), "000000000"), "No collated editions")
}

func testLine() *types.Line {
	return &types.Line{
		ID:           "tln_0014",
		LineNumber:   14,
		Label:        "14",
		RenderedHTML: "<span>line <b>14</b> of the play</span>",
		WitnessMeter: "010000000",
	}
}

func TestRowRendererCollapsed(t *testing.T) {
	r := NewRowRenderer(PlainStyles(), true)
	rows := r.RenderRow(viewer.RowInput{Line: testLine(), Breakpoint: viewer.BreakpointXS})
	assert.Equal(t, []string{"   14 line 14 of the play"}, rows)

	rows = r.RenderRow(viewer.RowInput{Line: testLine(), Breakpoint: viewer.BreakpointLG, MeterWidth: 8})
	assert.Equal(t, []string{"   14 ░█░░░░░░ line 14 of the play"}, rows)

	assert.Nil(t, r.RenderRow(viewer.RowInput{}))
}

func TestRowRendererExpandedVariants(t *testing.T) {
	desc := "om."
	notes := []*types.Note{
		{
			ID:        "tn_0014",
			LineRange: "14-15: ",
			Variants: []types.Variant{
				{ID: "v1", Text: "variant words", WitnessFormula: "F1"},
				{ID: "v2", Description: &desc, WitnessFormula: "ROWE"},
				{ID: "v3"},
			},
		},
	}
	r := NewRowRenderer(PlainStyles(), false)
	rows := r.RenderRow(viewer.RowInput{
		Line:       testLine(),
		Notes:      notes,
		Expanded:   true,
		Breakpoint: viewer.BreakpointSM,
		Highlights: []string{"words"},
	})
	require.Len(t, rows, 4)
	assert.Equal(t, "      14-15: variant words  F1", rows[1])
	assert.Equal(t, "      14-15: om.  ROWE", rows[2])
	assert.Equal(t, "      14-15: "+types.MalformedVariantText, rows[3])
}

func TestCommentaryBlock(t *testing.T) {
	c := &types.Commentary{
		ID:            "cn_0001",
		LineLabel:     "1.2.4",
		SubjectMatter: "Sicilia",
		Contents:      "<p>first paragraph</p><p>second</p>",
	}
	assert.Equal(t, "1.2.4: Sicilia", CommentaryHeading(c))
	block := PlainStyles().CommentaryBlock(c, 40, false)
	require.Len(t, block, 3)
	assert.Equal(t, "1.2.4: Sicilia", strings.TrimRight(block[0], " "))
	assert.Equal(t, "first paragraph", strings.TrimRight(block[1], " "))
	assert.Equal(t, "second", strings.TrimRight(block[2], " "))
}

func TestMarkdownRendersText(t *testing.T) {
	out := xansi.Strip(Markdown("# Help\n\nPress **q** to quit.", 60))
	assert.Contains(t, out, "Help")
	assert.Contains(t, out, "Press q to quit.")
	assert.Equal(t, "", Markdown("\n", 60))
}

package types

type Commentary struct {
	ID            string    `json:"xml_id"`
	CorporaID     string    `json:"id,omitempty"`
	Sequence      int       `json:"sequence"`
	Lines         []LineRef `json:"lines,omitempty"`
	LineLabel     string    `json:"line_label"`
	SubjectMatter string    `json:"subject_matter"`
	Contents      string    `json:"contents"`
}

// FirstLineID is the anchor line of the note, empty when it has none.
func (c *Commentary) FirstLineID() string {
	if c == nil || len(c.Lines) == 0 {
		return ""
	}
	return c.Lines[0].ID
}

// CommentaryQuery selects one page of commentary by sequence.
type CommentaryQuery struct {
	// Cursor bounds the page by sequence, inclusive; nil starts from the
	// end selected by Descending.
	Cursor     *int
	Descending bool
	PageSize   int
}

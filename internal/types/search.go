package types

type SearchType string

const (
	SearchTypeExact  SearchType = "exact"
	SearchTypeFuzzy  SearchType = "fuzzy"
	SearchTypePhrase SearchType = "phrase"
)

type SearchScope string

const (
	SearchScopePlaytext   SearchScope = "playtext"
	SearchScopeVariants   SearchScope = "variants"
	SearchScopeCommentary SearchScope = "commentary"
)

type LineMatch struct {
	ID      string   `json:"xml_id"`
	Matches []string `json:"matches"`
}

type CommentaryMatch struct {
	CommID  string   `json:"comm_id"`
	Matches []string `json:"matches"`
}

type SearchResults struct {
	Characters   []string          `json:"characters,omitempty"`
	Lines        []LineMatch       `json:"lines"`
	Variants     []LineMatch       `json:"variants"`
	Commentaries []CommentaryMatch `json:"commentaries"`
}

func (r *SearchResults) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Lines) == 0 && len(r.Variants) == 0 && len(r.Commentaries) == 0
}

package types

type Speaker struct {
	ID   string `json:"xml_id"`
	Name string `json:"name,omitempty"`
}

type Speech struct {
	Speaking []Speaker `json:"speaking"`
	Lines    []LineRef `json:"lines"`
}

// Character is a speaker with the number of speeches attributed to them.
type Character struct {
	ID       string
	Name     string
	Speeches int
}

package render

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const lemmaClassPrefix = "commentary-lemma-"

// Segment is a run of text sharing one style.
type Segment struct {
	Text    string
	Bold    bool
	Italic  bool
	Small   bool
	LemmaID string
	Match   bool
	Break   bool
}

type segmentStyle struct {
	tag     string
	bold    bool
	italic  bool
	small   bool
	lemmaID string
}

// ParseHTML flattens rendered line or commentary HTML into styled
// segments. Whitespace collapses to single spaces; block ends become
// Break segments.
func ParseHTML(src string) []Segment {
	z := html.NewTokenizer(strings.NewReader(src))
	stack := []segmentStyle{{}}
	var out []Segment
	pendingSpace := false

	emit := func(text string) {
		style := stack[len(stack)-1]
		for _, r := range text {
			if unicode.IsSpace(r) {
				pendingSpace = true
				continue
			}
			if pendingSpace && len(out) > 0 && !out[len(out)-1].Break {
				out[len(out)-1].Text += " "
			}
			pendingSpace = false
			appendText(&out, string(r), style)
		}
	}
	lineBreak := func() {
		pendingSpace = false
		if len(out) == 0 || out[len(out)-1].Break {
			return
		}
		out = append(out, Segment{Break: true})
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			for len(out) > 0 && out[len(out)-1].Break {
				out = out[:len(out)-1]
			}
			return out
		case html.TextToken:
			emit(string(z.Text()))
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				lineBreak()
			}
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag == "br" {
				lineBreak()
				continue
			}
			style := stack[len(stack)-1]
			style.tag = tag
			switch tag {
			case "b", "strong":
				style.bold = true
			case "i", "em":
				style.italic = true
			case "small", "sup", "sub":
				style.small = true
			case "p", "div":
				lineBreak()
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) != "class" {
					continue
				}
				if id := LemmaIDFromClass(string(val)); id != "" {
					style.lemmaID = id
				}
				for _, class := range strings.Fields(string(val)) {
					if class == "italic" {
						style.italic = true
					}
				}
			}
			stack = append(stack, style)
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].tag == tag {
					stack = stack[:i]
					break
				}
			}
			if tag == "p" || tag == "div" {
				lineBreak()
			}
		}
	}
}

func appendText(out *[]Segment, text string, style segmentStyle) {
	if n := len(*out); n > 0 {
		last := &(*out)[n-1]
		if !last.Break && last.Bold == style.bold && last.Italic == style.italic &&
			last.Small == style.small && last.LemmaID == style.lemmaID && !last.Match {
			last.Text += text
			return
		}
	}
	*out = append(*out, Segment{
		Text:    text,
		Bold:    style.bold,
		Italic:  style.italic,
		Small:   style.small,
		LemmaID: style.lemmaID,
	})
}

// LemmaIDFromClass extracts the commentary note ID from a comspan class
// list such as "commentary-lemma-cn_0001 highlight".
func LemmaIDFromClass(class string) string {
	for _, field := range strings.Fields(class) {
		if id, ok := strings.CutPrefix(field, lemmaClassPrefix); ok && id != "" {
			return id
		}
	}
	return ""
}

// LemmaIDs lists the commentary notes with lemmas in src, in order of
// first appearance.
func LemmaIDs(src string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, seg := range ParseHTML(src) {
		if seg.LemmaID == "" {
			continue
		}
		if _, ok := seen[seg.LemmaID]; ok {
			continue
		}
		seen[seg.LemmaID] = struct{}{}
		out = append(out, seg.LemmaID)
	}
	return out
}

// PlainText strips markup, keeping breaks as newlines.
func PlainText(src string) string {
	return Join(ParseHTML(src))
}

func Join(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Break {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// MarkMatches splits segments so every case-insensitive occurrence of a
// match term becomes its own segment flagged Match.
func MarkMatches(segments []Segment, matches []string) []Segment {
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			terms = append(terms, strings.ToLower(m))
		}
	}
	if len(terms) == 0 {
		return segments
	}
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Break || seg.Match {
			out = append(out, seg)
			continue
		}
		rest := seg.Text
		for rest != "" {
			at, length := firstMatch(rest, terms)
			if at < 0 {
				piece := seg
				piece.Text = rest
				out = append(out, piece)
				break
			}
			if at > 0 {
				piece := seg
				piece.Text = rest[:at]
				out = append(out, piece)
			}
			hit := seg
			hit.Text = rest[at : at+length]
			hit.Match = true
			out = append(out, hit)
			rest = rest[at+length:]
		}
	}
	return out
}

// firstMatch finds the earliest, then longest, term in text. Terms are
// lower case; matching folds ASCII and keeps byte offsets stable.
func firstMatch(text string, terms []string) (int, int) {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		lower = text
	}
	best, bestLen := -1, 0
	for _, term := range terms {
		i := strings.Index(lower, term)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || (i == best && len(term) > bestLen) {
			best, bestLen = i, len(term)
		}
	}
	return best, bestLen
}

// Package linkify splits tutor replies into plain-text runs and inline
// markdown links of the form [label](url).
package linkify

import (
	"regexp"
	"strings"
)

// linkPattern matches a non-empty bracket label immediately followed by a
// non-empty parenthesized URL. Neither part may contain its closing delimiter.
var linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// Segment is either a plain-text run or a link.
type Segment struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// IsLink reports whether the segment is a link.
func (s Segment) IsLink() bool {
	return s.URL != ""
}

// Text returns a plain-text segment.
func Text(s string) Segment {
	return Segment{Text: s}
}

// Link returns a link segment.
func Link(label, url string) Segment {
	return Segment{Text: label, URL: url}
}

// Tokenize scans text left to right and returns its segments in order.
// Unbalanced or otherwise malformed markup is left in the plain text.
func Tokenize(text string) []Segment {
	var segs []Segment
	last := 0
	for _, m := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			segs = append(segs, Text(text[last:m[0]]))
		}
		segs = append(segs, Link(text[m[2]:m[3]], text[m[4]:m[5]]))
		last = m[1]
	}
	if last < len(text) {
		segs = append(segs, Text(text[last:]))
	}
	return segs
}

// Markup re-renders segments into the source text they were tokenized from.
func Markup(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.IsLink() {
			b.WriteString("[" + s.Text + "](" + s.URL + ")")
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// PlainText concatenates the visible text of segments, using the label for links.
func PlainText(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

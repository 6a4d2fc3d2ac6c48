package linkify

import (
	"reflect"
	"testing"
)

func TestTokenizeTwoLinks(t *testing.T) {
	t.Parallel()

	got := Tokenize("See [notes](http://x/1) and [slides](http://x/2) now")
	want := []Segment{
		Text("See "),
		Link("notes", "http://x/1"),
		Text(" and "),
		Link("slides", "http://x/2"),
		Text(" now"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected segments:\n got %#v\nwant %#v", got, want)
	}
}

func TestTokenizeEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{"empty", "", nil},
		{"plain", "no links here", []Segment{Text("no links here")}},
		{"link only", "[a](b)", []Segment{Link("a", "b")}},
		{"adjacent links", "[a](b)[c](d)", []Segment{Link("a", "b"), Link("c", "d")}},
		{"unclosed bracket", "[notes(http://x)", []Segment{Text("[notes(http://x)")}},
		{"space between parts", "[notes] (http://x)", []Segment{Text("[notes] (http://x)")}},
		{"empty label", "[](http://x)", []Segment{Text("[](http://x)")}},
		{"empty url", "[a]()", []Segment{Text("[a]()")}},
		{"percent escapes kept", "[q](http://x/?a=%20)", []Segment{Link("q", "http://x/?a=%20")}},
		{"bracket in label", "[[a](b)", []Segment{Link("[a", "b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"plain",
		"See [notes](http://x/1) and [slides](http://x/2) now",
		"][)(",
		"[a](b) trailing [",
		"[x](y)(z)",
		"unicode [ü](http://é/ñ) ok",
		"[a](b c) [d]",
	}
	for _, in := range inputs {
		segs := Tokenize(in)
		if got := Markup(segs); got != in {
			t.Errorf("Markup(Tokenize(%q)) = %q", in, got)
		}
		for _, s := range segs {
			if s.Text == "" {
				t.Errorf("Tokenize(%q) produced an empty segment", in)
			}
		}
	}
}

func TestPlainTextUsesLabels(t *testing.T) {
	t.Parallel()

	segs := Tokenize("Read [chapter 3](http://x/3) first")
	if got := PlainText(segs); got != "Read chapter 3 first" {
		t.Fatalf("PlainText = %q", got)
	}
}

package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("abc123", 4)
	b := PointID("abc123", 4)
	if a != b {
		t.Fatalf("same inputs produced %s and %s", a, b)
	}
	if a == PointID("abc123", 5) || a == PointID("abc124", 4) {
		t.Fatal("distinct inputs collided")
	}
}

func TestSnippetKeepsShortText(t *testing.T) {
	text := "Wartung der Aufzüge"
	if got := Snippet(text); got != text {
		t.Fatalf("Snippet() = %q, want unchanged", got)
	}
}

func TestSnippetDoesNotSplitRunes(t *testing.T) {
	// The limit lands on the second byte of the umlaut.
	text := strings.Repeat("a", SnippetLimit-1) + "äx"
	got := Snippet(text)
	if len(got) != SnippetLimit-1 {
		t.Fatalf("len = %d, want %d", len(got), SnippetLimit-1)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("Snippet produced invalid UTF-8")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		text  string
		limit int
		want  string
	}{
		{"abcdef", 4, "abcd"},
		{"abcdef", 10, "abcdef"},
		{"abcdef", 0, "abcdef"},
		{"aaaäbb", 4, "aaa"},
		{"ääää", 5, "ää"},
		{"ääää", 4, "ää"},
	}
	for _, tc := range cases {
		got := Truncate(tc.text, tc.limit)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.text, tc.limit, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tc.text, tc.limit)
		}
	}
}

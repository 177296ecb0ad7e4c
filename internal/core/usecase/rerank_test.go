package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/procurex/tendersearch/internal/core/domain"
)

func TestRerankPassThroughWithinBudget(t *testing.T) {
	scorer := &fakeScorer{}
	r := NewReranker(scorer, 5, 0.8, 1800, 8)

	hits := hitList("a", "b", "c")
	got, err := r.Rerank(context.Background(), "Wartung", hits)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer called %d times for pass-through", scorer.calls)
	}
	for i := range hits {
		if got[i].ID != hits[i].ID || got[i].Score != hits[i].Score {
			t.Fatalf("pass-through changed hits: got %+v want %+v", got[i], hits[i])
		}
	}
}

func TestRerankNarrowsToKeep(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5, 0.3}}
	r := NewReranker(scorer, 2, 1.0, 1800, 8)

	hits := hitList("a", "b", "c", "d")
	got, err := r.Rerank(context.Background(), "Schule", hits)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected keep=2, got %d hits", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("expected [b c] by cross-encoder score, got %v", ids(got))
	}
	input := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	for _, h := range got {
		if !input[h.ID] {
			t.Fatalf("rerank invented hit %q", h.ID)
		}
	}
}

func TestRerankBlendsScores(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.5, 0.5, 0.5}}
	r := NewReranker(scorer, 1, 0.8, 1800, 8)

	hits := []domain.Hit{
		{ID: "a", Text: "a", Score: 0.9},
		{ID: "b", Text: "b", Score: 0.1},
		{ID: "c", Text: "c", Score: 0.2},
	}
	got, err := r.Rerank(context.Background(), "q", hits)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	// Equal cross-encoder scores: the retrieval score decides through
	// the (1-w) term.
	if got[0].ID != "a" {
		t.Fatalf("expected a first, got %s", got[0].ID)
	}
	want := 0.8*0.5 + 0.2*0.9
	if math.Abs(got[0].Score-want) > 1e-12 {
		t.Fatalf("blended score = %v, want %v", got[0].Score, want)
	}
}

func TestRerankTruncatesPassages(t *testing.T) {
	var seen []string
	scorer := &capturingScorer{scores: []float64{0, 0, 0}, captured: &seen}
	r := NewReranker(scorer, 2, 0.8, 10, 8)

	hits := []domain.Hit{
		{ID: "a", Text: strings.Repeat("x", 50)},
		{ID: "b", Text: "short"},
		{ID: "c", Payload: domain.Payload{Text: "payload text only"}},
	}
	if _, err := r.Rerank(context.Background(), "q", hits); err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(seen))
	}
	if len(seen[0]) != 10 {
		t.Fatalf("long passage not truncated: %d chars", len(seen[0]))
	}
	if seen[1] != "short" {
		t.Fatalf("short passage altered: %q", seen[1])
	}
	if seen[2] != "payload te" {
		t.Fatalf("payload text not used: %q", seen[2])
	}
}

func TestRerankTruncationKeepsValidUTF8(t *testing.T) {
	var seen []string
	scorer := &capturingScorer{scores: []float64{0, 0, 0}, captured: &seen}
	r := NewReranker(scorer, 2, 0.8, 10, 8)

	hits := []domain.Hit{
		// The budget lands on the second byte of the trailing umlaut.
		{ID: "a", Text: "aaaaaaaaaä"},
		{ID: "b", Text: strings.Repeat("ä", 8)},
		{ID: "c", Text: "kurz"},
	}
	if _, err := r.Rerank(context.Background(), "q", hits); err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if seen[0] != "aaaaaaaaa" {
		t.Fatalf("passage not cut on rune boundary: %q", seen[0])
	}
	for i, p := range seen {
		if !utf8.ValidString(p) {
			t.Fatalf("passage %d is invalid UTF-8: %q", i, p)
		}
	}
}

func TestRerankScorerErrorSurfaces(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("rerank service down")}
	r := NewReranker(scorer, 1, 0.8, 1800, 8)

	_, err := r.Rerank(context.Background(), "q", hitList("a", "b"))
	if err == nil || !strings.Contains(err.Error(), "rerank service down") {
		t.Fatalf("expected scorer error to surface, got %v", err)
	}
}

func TestShouldBypassCatalogID(t *testing.T) {
	r := NewReranker(&fakeScorer{}, 24, 0.8, 1800, 8)
	cases := []struct {
		query string
		want  bool
	}{
		{"12345678", true},
		{"1234567", false},
		{"123456789", false},
		{"12345678 Wartung", false},
		{"Wartung Aufzug", false},
	}
	for _, tc := range cases {
		if got := r.ShouldBypass(tc.query); got != tc.want {
			t.Errorf("ShouldBypass(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

type capturingScorer struct {
	scores   []float64
	captured *[]string
}

func (c *capturingScorer) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	*c.captured = append([]string(nil), passages...)
	return c.scores, nil
}

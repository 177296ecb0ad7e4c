package usecase

import (
	"math"
	"testing"

	"github.com/procurex/tendersearch/internal/core/domain"
)

func ids(hits []domain.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestFuseRRFSumsReciprocalRanks(t *testing.T) {
	a := hitList("x", "y", "z")
	b := hitList("y", "x", "w")

	fused := fuseRRF([][]domain.Hit{a, b}, 60)

	got := ids(fused)
	want := []string{"x", "y", "z", "w"}
	if len(got) != len(want) {
		t.Fatalf("fused ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fused ids = %v, want %v", got, want)
		}
	}

	wantX := 1.0/61 + 1.0/62
	if math.Abs(fused[0].Score-wantX) > 1e-12 {
		t.Fatalf("score(x) = %v, want %v", fused[0].Score, wantX)
	}
	if math.Abs(fused[1].Score-wantX) > 1e-12 {
		t.Fatalf("score(y) = %v, want %v (equal to x)", fused[1].Score, wantX)
	}
	wantTail := 1.0 / 63
	if math.Abs(fused[2].Score-wantTail) > 1e-12 || math.Abs(fused[3].Score-wantTail) > 1e-12 {
		t.Fatalf("tail scores = %v, %v, want both %v", fused[2].Score, fused[3].Score, wantTail)
	}
}

func TestFuseRRFTieBreaksByFirstSeen(t *testing.T) {
	// x and y accumulate identical scores; x entered first.
	fused := fuseRRF([][]domain.Hit{hitList("x", "y"), hitList("y", "x")}, 60)
	if got := ids(fused); got[0] != "x" || got[1] != "y" {
		t.Fatalf("tie-break order = %v, want [x y]", got)
	}

	// Reversed input order flips the winner.
	fused = fuseRRF([][]domain.Hit{hitList("y", "x"), hitList("x", "y")}, 60)
	if got := ids(fused); got[0] != "y" || got[1] != "x" {
		t.Fatalf("tie-break order = %v, want [y x]", got)
	}
}

func TestFuseRRFSingleListKeepsOrder(t *testing.T) {
	fused := fuseRRF([][]domain.Hit{hitList("a", "b", "c")}, 60)
	got := ids(fused)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fused ids = %v, want %v", got, want)
		}
	}
	if fused[0].Score <= fused[1].Score || fused[1].Score <= fused[2].Score {
		t.Fatalf("scores not strictly decreasing: %v", fused)
	}
}

func TestFuseRRFMergesPayloadDetail(t *testing.T) {
	sparseHit := domain.Hit{ID: "p"}
	denseHit := domain.Hit{ID: "p", Text: "full text", Payload: domain.Payload{SourcePath: "doc.pdf"}}

	fused := fuseRRF([][]domain.Hit{{sparseHit}, {denseHit}}, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 fused hit, got %d", len(fused))
	}
	if fused[0].Text != "full text" || fused[0].Payload.SourcePath != "doc.pdf" {
		t.Fatalf("richer hit detail not carried: %+v", fused[0])
	}
}

func TestTrimHits(t *testing.T) {
	hits := hitList("a", "b", "c")
	if got := trimHits(hits, 2); len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if got := trimHits(hits, 10); len(got) != 3 {
		t.Fatalf("expected all hits, got %d", len(got))
	}
	if got := trimHits(hits, 0); len(got) != 3 {
		t.Fatalf("expected no trimming for zero limit, got %d", len(got))
	}
}

package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/procurex/tendersearch/internal/core/domain"
	"github.com/procurex/tendersearch/internal/core/ports"
)

// Reranker narrows a fused candidate list with a cross-encoder. The
// cross-encoder score is blended with the candidate's fused score so a
// strong retrieval signal is dampened, not discarded.
type Reranker struct {
	scorer     ports.RerankScorer
	keep       int
	weight     float64
	textBudget int
	idPattern  *regexp.Regexp
}

func NewReranker(scorer ports.RerankScorer, keep int, weight float64, textBudget, catalogIDDigits int) *Reranker {
	if keep <= 0 {
		keep = 24
	}
	if weight < 0 || weight > 1 {
		weight = 0.8
	}
	if textBudget <= 0 {
		textBudget = 1800
	}
	if catalogIDDigits <= 0 {
		catalogIDDigits = 8
	}
	return &Reranker{
		scorer:     scorer,
		keep:       keep,
		weight:     weight,
		textBudget: textBudget,
		idPattern:  regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, catalogIDDigits)),
	}
}

// ShouldBypass reports whether the query is a bare catalog identifier.
// Those queries have exactly one right answer; a semantic cross-encoder
// can only demote it.
func (r *Reranker) ShouldBypass(query string) bool {
	return r.idPattern.MatchString(query)
}

// Rerank scores candidates against the query and returns the top keep
// by blended score. A list already within the keep budget passes
// through untouched.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []domain.Hit) ([]domain.Hit, error) {
	if len(hits) == 0 || len(hits) <= r.keep {
		return hits, nil
	}

	passages := make([]string, 0, len(hits))
	for _, hit := range hits {
		text := hit.Text
		if text == "" {
			text = hit.Payload.Text
		}
		text = domain.Truncate(text, r.textBudget)
		passages = append(passages, text)
	}

	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}
	if len(scores) != len(hits) {
		return nil, fmt.Errorf("rerank returned %d scores for %d candidates", len(scores), len(hits))
	}

	blended := make([]domain.Hit, len(hits))
	copy(blended, hits)
	for i := range blended {
		blended[i].Score = r.weight*scores[i] + (1-r.weight)*hits[i].Score
	}
	sort.SliceStable(blended, func(i, j int) bool { return blended[i].Score > blended[j].Score })

	return blended[:r.keep], nil
}

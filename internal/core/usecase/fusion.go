package usecase

import (
	"sort"

	"github.com/procurex/tendersearch/internal/core/domain"
)

type fusedCandidate struct {
	hit   domain.Hit
	score float64
	seen  int
}

// fuseRRF combines ranked result lists with Reciprocal Rank Fusion:
// each list contributes 1/(k+rank) per hit (rank is 1-based), summed
// across lists. Ties are broken by first-seen input order, which keeps
// the output deterministic for identical inputs.
func fuseRRF(lists [][]domain.Hit, rrfK int) []domain.Hit {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedCandidate)
	order := 0
	for _, list := range lists {
		for rank, hit := range list {
			candidate, ok := acc[hit.ID]
			if !ok {
				candidate = &fusedCandidate{hit: hit, seen: order}
				order++
				acc[hit.ID] = candidate
			} else {
				candidate.hit = preferRicherHit(candidate.hit, hit)
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]*fusedCandidate, 0, len(acc))
	for _, candidate := range acc {
		out = append(out, candidate)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].seen < out[j].seen
	})

	hits := make([]domain.Hit, 0, len(out))
	for _, candidate := range out {
		hit := candidate.hit
		hit.Score = candidate.score
		hits = append(hits, hit)
	}
	return hits
}

func trimHits(hits []domain.Hit, limit int) []domain.Hit {
	if limit <= 0 || len(hits) <= limit {
		return hits
	}
	return hits[:limit]
}

// preferRicherHit fills gaps when the same point arrives from both
// retrieval stages with uneven payload detail.
func preferRicherHit(current, candidate domain.Hit) domain.Hit {
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Payload.SourcePath == "" && candidate.Payload.SourcePath != "" {
		current.Payload = candidate.Payload
	}
	return current
}

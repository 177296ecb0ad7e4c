package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/procurex/tendersearch/internal/core/domain"
	"github.com/procurex/tendersearch/internal/core/ports"
)

type RetrieverConfig struct {
	CandidateLimit   int
	FinalK           int
	MinScore         float64
	RRFK             int
	UseHybrid        bool
	UseRerank        bool
	CorpusLanguage   string
	ForceTranslation bool
	DualQuery        bool
}

// Retriever orchestrates the full query pipeline: routing strategy,
// hybrid dense+lexical search, RRF fusion, reranking, final cut.
type Retriever struct {
	embedder   ports.Embedder
	dense      ports.VectorIndex
	lexical    ports.SparseSearcher
	reranker   *Reranker
	translator ports.Translator
	detector   ports.LanguageDetector
	logger     *slog.Logger
	cfg        RetrieverConfig
}

func NewRetriever(
	embedder ports.Embedder,
	dense ports.VectorIndex,
	lexical ports.SparseSearcher,
	reranker *Reranker,
	translator ports.Translator,
	detector ports.LanguageDetector,
	logger *slog.Logger,
	cfg RetrieverConfig,
) *Retriever {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 100
	}
	if cfg.FinalK <= 0 {
		cfg.FinalK = 16
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	if cfg.CorpusLanguage == "" {
		cfg.CorpusLanguage = "de"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:   embedder,
		dense:      dense,
		lexical:    lexical,
		reranker:   reranker,
		translator: translator,
		detector:   detector,
		logger:     logger,
		cfg:        cfg,
	}
}

// Strategy reports the configured routing strategy, for logs and
// metric labels.
func (r *Retriever) Strategy() domain.RoutingStrategy {
	switch {
	case r.cfg.DualQuery:
		return domain.StrategyDual
	case r.cfg.ForceTranslation:
		return domain.StrategyTranslate
	default:
		return domain.StrategySingle
	}
}

// Retrieve runs the pipeline in its fixed order: per-query hybrid
// search, cross-query fusion, rerank, cut to the final size. An empty
// result is a valid empty slice, never an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("empty query"))
	}
	if limit <= 0 || limit > r.cfg.FinalK {
		limit = r.cfg.FinalK
	}

	candidates, err := r.gatherCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	if r.cfg.UseRerank && r.reranker != nil && len(candidates) > 0 {
		if r.reranker.ShouldBypass(query) {
			r.logger.Debug("rerank_bypass", "reason", "catalog_id_query")
		} else {
			candidates, err = r.reranker.Rerank(ctx, query, candidates)
			if err != nil {
				return nil, err
			}
		}
	}

	return trimHits(candidates, limit), nil
}

func (r *Retriever) gatherCandidates(ctx context.Context, query string) ([]domain.Hit, error) {
	switch r.Strategy() {
	case domain.StrategyTranslate:
		return r.searchHybrid(ctx, r.corpusQuery(ctx, query))
	case domain.StrategyDual:
		original, err := r.searchHybrid(ctx, query)
		if err != nil {
			return nil, err
		}
		translated := r.corpusQuery(ctx, query)
		if translated == query {
			return original, nil
		}
		second, err := r.searchHybrid(ctx, translated)
		if err != nil {
			return nil, err
		}
		fused := fuseRRF([][]domain.Hit{original, second}, r.cfg.RRFK)
		return trimHits(fused, r.cfg.CandidateLimit), nil
	default:
		return r.searchHybrid(ctx, query)
	}
}

// corpusQuery returns the query in the corpus language. Detection and
// translation are both best-effort: unreliable detection treats the
// query as already being in the corpus language, and a failed
// translation degrades to the query as given.
func (r *Retriever) corpusQuery(ctx context.Context, query string) string {
	if r.detector != nil {
		lang, ok := r.detector.Detect(query)
		if !ok || lang == r.cfg.CorpusLanguage {
			return query
		}
	}
	if r.translator == nil {
		return query
	}
	translated, err := r.translator.Translate(ctx, query)
	if err != nil {
		r.logger.Warn("translation_degraded", "error", err)
		return query
	}
	return translated
}

// searchHybrid runs dense and lexical search for one query string and
// fuses the two lists. The min-score threshold applies to the dense
// stage only; fused RRF scores are rank-based and never compared to it.
func (r *Retriever) searchHybrid(ctx context.Context, query string) ([]domain.Hit, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	denseHits, err := r.dense.Search(ctx, vector, r.cfg.CandidateLimit, r.cfg.MinScore)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	if !r.cfg.UseHybrid || r.lexical == nil {
		return denseHits, nil
	}

	lexicalHits, err := r.lexical.Search(ctx, query, r.cfg.CandidateLimit)
	if err != nil {
		// Lexical recall is additive; a missing or broken snapshot
		// degrades to dense-only instead of failing the request.
		r.logger.Warn("lexical_search_degraded", "error", err)
		return denseHits, nil
	}

	fused := fuseRRF([][]domain.Hit{denseHits, lexicalHits}, r.cfg.RRFK)
	return trimHits(fused, r.cfg.CandidateLimit), nil
}

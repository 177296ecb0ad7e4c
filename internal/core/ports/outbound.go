package ports

import (
	"context"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// Embedder turns text into vectors. Passage and query embeddings use
// asymmetric task prefixes, so the two paths are separate methods.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dim reports the effective (post-truncation) vector dimension.
	Dim() int
}

// VectorIndex is the external approximate-nearest-neighbour store.
type VectorIndex interface {
	Create(ctx context.Context, dim int) error
	Drop(ctx context.Context) error
	// CollectionDim reports the live collection's configured dimension.
	// Returns domain.ErrNotFound when the collection does not exist.
	CollectionDim(ctx context.Context) (int, error)
	Upsert(ctx context.Context, points []domain.Point) error
	Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]domain.Hit, error)
	// Scroll streams every stored point's id and payload (no vectors).
	Scroll(ctx context.Context, fn func(id string, payload domain.Payload) error) error
	Count(ctx context.Context) (int, error)
}

// SparseSearcher is the lexical (BM25) side of hybrid retrieval.
type SparseSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Hit, error)
	// Reload re-reads the persisted snapshot, replacing the in-memory index.
	Reload() error
}

// SparseIndexer rebuilds the persisted lexical snapshot in full.
type SparseIndexer interface {
	Build(docs []domain.LexicalDocument) error
}

// RerankScorer scores (query, passage) pairs with a cross-encoder.
// Scores are returned in input order.
type RerankScorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Translator rewrites a query into the corpus language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// LanguageDetector reports the dominant language of a short text as an
// ISO 639-1 code. Best-effort: ok=false when detection is unreliable.
type LanguageDetector interface {
	Detect(text string) (lang string, ok bool)
}

// Chunker splits extracted pages into overlapping indexable chunks.
type Chunker interface {
	Split(pages []domain.Page) []domain.Chunk
}

// PageLoader extracts per-page text from a source document.
type PageLoader interface {
	LoadPages(ctx context.Context, path string) ([]domain.Page, error)
}

// MetadataJoiner enriches a payload with externally curated metadata
// (catalog id, buyer, region) keyed off the source path.
type MetadataJoiner interface {
	Enrich(payload *domain.Payload)
}

// ManifestRepository persists per-document indexing outcomes.
type ManifestRepository interface {
	Upsert(ctx context.Context, rec domain.DocumentRecord) error
	Get(ctx context.Context, sourcePath string) (*domain.DocumentRecord, error)
	ListByStatus(ctx context.Context, status domain.DocumentStatus) ([]domain.DocumentRecord, error)
}

// CorpusSource enumerates and fingerprints the document corpus.
type CorpusSource interface {
	ListDocuments(ctx context.Context) ([]string, error)
	HashDocument(path string) (string, error)
}

// MessageQueue publishes indexing events and consumes reindex requests.
type MessageQueue interface {
	PublishDocumentIndexed(ctx context.Context, sourcePath string) error
	SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

package ports

import (
	"context"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// SearchService is the inbound contract for hybrid retrieval.
type SearchService interface {
	Retrieve(ctx context.Context, query string, limit int) ([]domain.Hit, error)
}

// IndexService is the inbound contract for corpus indexing passes.
type IndexService interface {
	Build(ctx context.Context) error
	BuildOCROnly(ctx context.Context) error
	IndexDocument(ctx context.Context, sourcePath string) error
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/procurex/tendersearch/internal/core/domain"
	"github.com/procurex/tendersearch/internal/core/ports"
)

const (
	IndexModeFresh  = "fresh"
	IndexModeAppend = "append"
)

type IndexerConfig struct {
	Mode        string
	FlushPoints int
	Service     string
}

// IndexObserver receives indexing progress for metrics. All methods
// must be cheap; a nil observer disables reporting.
type IndexObserver interface {
	StartDocument()
	FinishDocument(service, status string, duration time.Duration)
	AddChunks(n int)
	RecordFlush()
}

// Indexer drives corpus indexing: full fresh/append builds, the
// OCR-only second pass over scanned documents, single-document
// reindexing and lexical snapshot rebuilds.
type Indexer struct {
	corpus    ports.CorpusSource
	loader    ports.PageLoader
	ocrLoader ports.PageLoader
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
	joiner    ports.MetadataJoiner
	manifest  ports.ManifestRepository
	queue     ports.MessageQueue
	sparse    ports.SparseIndexer
	observer  IndexObserver
	logger    *slog.Logger
	cfg       IndexerConfig
}

func NewIndexer(
	corpus ports.CorpusSource,
	loader ports.PageLoader,
	ocrLoader ports.PageLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	joiner ports.MetadataJoiner,
	manifest ports.ManifestRepository,
	queue ports.MessageQueue,
	sparse ports.SparseIndexer,
	observer IndexObserver,
	logger *slog.Logger,
	cfg IndexerConfig,
) *Indexer {
	if cfg.Mode == "" {
		cfg.Mode = IndexModeAppend
	}
	if cfg.FlushPoints <= 0 {
		cfg.FlushPoints = 1000
	}
	if cfg.Service == "" {
		cfg.Service = "indexer"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		corpus:    corpus,
		loader:    loader,
		ocrLoader: ocrLoader,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		joiner:    joiner,
		manifest:  manifest,
		queue:     queue,
		sparse:    sparse,
		observer:  observer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Build indexes the whole corpus. Fresh mode drops and recreates the
// collection; append mode validates the live collection's dimension
// against the embedder before any write happens. Per-document failures
// are recorded in the manifest and do not abort the pass.
func (ix *Indexer) Build(ctx context.Context) error {
	if err := ix.prepareCollection(ctx); err != nil {
		return err
	}

	paths, err := ix.corpus.ListDocuments(ctx)
	if err != nil {
		return err
	}
	ix.logger.Info("index_build_started", "mode", ix.cfg.Mode, "documents", len(paths))

	buffer := newPointBuffer(ix.index, ix.cfg.FlushPoints, ix.observer)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ix.indexOne(ctx, buffer, path, ix.loader, false); err != nil {
			if domain.IsKind(err, domain.ErrConfiguration) {
				return err
			}
			ix.logger.Error("document_failed", "path", path, "error", err)
		}
	}
	if err := buffer.flush(ctx); err != nil {
		return err
	}
	ix.logger.Info("index_build_finished", "documents", len(paths))
	return nil
}

// BuildOCROnly re-extracts manifest entries that previously produced
// no text layer, this time through the OCR loader, and appends their
// chunks under the same deterministic id scheme.
func (ix *Indexer) BuildOCROnly(ctx context.Context) error {
	if ix.ocrLoader == nil {
		return domain.WrapError(domain.ErrConfiguration, "ocr pass", fmt.Errorf("no OCR loader configured"))
	}
	if err := ix.validateAppendDim(ctx); err != nil {
		return err
	}

	records, err := ix.manifest.ListByStatus(ctx, domain.StatusNoText)
	if err != nil {
		return err
	}
	ix.logger.Info("ocr_pass_started", "documents", len(records))

	buffer := newPointBuffer(ix.index, ix.cfg.FlushPoints, ix.observer)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ix.indexOne(ctx, buffer, rec.SourcePath, ix.ocrLoader, true); err != nil {
			if domain.IsKind(err, domain.ErrConfiguration) {
				return err
			}
			ix.logger.Error("ocr_document_failed", "path", rec.SourcePath, "error", err)
		}
	}
	return buffer.flush(ctx)
}

// IndexDocument indexes a single document in append mode, used by the
// reindex queue subscription.
func (ix *Indexer) IndexDocument(ctx context.Context, sourcePath string) error {
	if err := ix.validateAppendDim(ctx); err != nil {
		return err
	}
	buffer := newPointBuffer(ix.index, ix.cfg.FlushPoints, ix.observer)
	if err := ix.indexOne(ctx, buffer, sourcePath, ix.loader, false); err != nil {
		return err
	}
	return buffer.flush(ctx)
}

// RebuildLexical snapshots every stored point and rebuilds the BM25
// index from it, so the lexical side always mirrors the vector store.
func (ix *Indexer) RebuildLexical(ctx context.Context) error {
	var docs []domain.LexicalDocument
	err := ix.index.Scroll(ctx, func(id string, payload domain.Payload) error {
		docs = append(docs, domain.LexicalDocument{ID: id, Text: payload.Text, Payload: payload})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scroll points: %w", err)
	}
	if err := ix.sparse.Build(docs); err != nil {
		return err
	}
	ix.logger.Info("lexical_rebuild_finished", "documents", len(docs))
	return nil
}

func (ix *Indexer) prepareCollection(ctx context.Context) error {
	dim := ix.embedder.Dim()
	if ix.cfg.Mode == IndexModeFresh {
		if err := ix.index.Drop(ctx); err != nil {
			return err
		}
		return ix.index.Create(ctx, dim)
	}
	return ix.ensureAppendCollection(ctx, dim)
}

func (ix *Indexer) validateAppendDim(ctx context.Context) error {
	return ix.ensureAppendCollection(ctx, ix.embedder.Dim())
}

// ensureAppendCollection guards append-mode writes: a missing
// collection is created, an existing one must match the embedder's
// effective dimension exactly.
func (ix *Indexer) ensureAppendCollection(ctx context.Context, dim int) error {
	existing, err := ix.index.CollectionDim(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return ix.index.Create(ctx, dim)
		}
		return err
	}
	if existing != dim {
		return domain.WrapError(domain.ErrConfiguration, "append guard",
			fmt.Errorf("collection dim %d does not match embedding dim %d", existing, dim))
	}
	return nil
}

func (ix *Indexer) indexOne(ctx context.Context, buffer *pointBuffer, path string, loader ports.PageLoader, viaOCR bool) error {
	start := time.Now()
	if ix.observer != nil {
		ix.observer.StartDocument()
	}
	status, err := ix.indexDocument(ctx, buffer, path, loader, viaOCR)
	if ix.observer != nil {
		ix.observer.FinishDocument(ix.cfg.Service, string(status), time.Since(start))
	}
	return err
}

func (ix *Indexer) indexDocument(ctx context.Context, buffer *pointBuffer, path string, loader ports.PageLoader, viaOCR bool) (domain.DocumentStatus, error) {
	docHash, err := ix.corpus.HashDocument(path)
	if err != nil {
		return domain.StatusFailed, ix.recordFailure(ctx, path, "", err)
	}

	// Append passes skip documents whose content is already indexed.
	if ix.cfg.Mode == IndexModeAppend && !viaOCR {
		if prev, err := ix.manifest.Get(ctx, path); err == nil &&
			prev.Status == domain.StatusIndexed && prev.DocHash == docHash {
			ix.logger.Debug("document_unchanged", "path", path)
			return prev.Status, nil
		}
	}

	pages, err := loader.LoadPages(ctx, path)
	if err != nil {
		return domain.StatusFailed, ix.recordFailure(ctx, path, docHash, err)
	}
	chunks := ix.chunker.Split(pages)
	if len(chunks) == 0 {
		rec := domain.DocumentRecord{
			SourcePath: path,
			DocHash:    docHash,
			Status:     domain.StatusNoText,
			OCR:        viaOCR,
		}
		if err := ix.manifest.Upsert(ctx, rec); err != nil {
			return domain.StatusNoText, err
		}
		return domain.StatusNoText, nil
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := ix.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return domain.StatusFailed, ix.recordFailure(ctx, path, docHash, err)
	}

	var catalogID string
	for i, chunk := range chunks {
		payload := domain.Payload{
			SourcePath: path,
			ChunkIndex: chunk.Index,
			PageStart:  chunk.PageStart,
			PageEnd:    chunk.PageEnd,
			DocHash:    docHash,
			Text:       domain.Snippet(chunk.Text),
			OCR:        viaOCR,
		}
		if ix.joiner != nil {
			ix.joiner.Enrich(&payload)
		}
		catalogID = payload.CatalogID
		point := domain.Point{
			ID:      domain.PointID(docHash, chunk.Index),
			Vector:  vectors[i],
			Payload: payload,
		}
		if err := buffer.add(ctx, point); err != nil {
			return domain.StatusFailed, ix.recordFailure(ctx, path, docHash, err)
		}
	}
	if ix.observer != nil {
		ix.observer.AddChunks(len(chunks))
	}

	rec := domain.DocumentRecord{
		SourcePath: path,
		DocHash:    docHash,
		Status:     domain.StatusIndexed,
		ChunkCount: len(chunks),
		CatalogID:  catalogID,
		OCR:        viaOCR,
	}
	if err := ix.manifest.Upsert(ctx, rec); err != nil {
		return domain.StatusIndexed, err
	}
	if ix.queue != nil {
		if err := ix.queue.PublishDocumentIndexed(ctx, path); err != nil {
			ix.logger.Warn("publish_indexed_failed", "path", path, "error", err)
		}
	}
	return domain.StatusIndexed, nil
}

func (ix *Indexer) recordFailure(ctx context.Context, path, docHash string, cause error) error {
	rec := domain.DocumentRecord{
		SourcePath: path,
		DocHash:    docHash,
		Status:     domain.StatusFailed,
		Error:      cause.Error(),
	}
	if err := ix.manifest.Upsert(ctx, rec); err != nil {
		ix.logger.Error("manifest_upsert_failed", "path", path, "error", err)
	}
	return cause
}

// pointBuffer batches upserts so embedding throughput is not coupled
// to vector-store round-trips. The final partial batch is always
// flushed by the caller.
type pointBuffer struct {
	index    ports.VectorIndex
	limit    int
	observer IndexObserver
	points   []domain.Point
}

func newPointBuffer(index ports.VectorIndex, limit int, observer IndexObserver) *pointBuffer {
	return &pointBuffer{
		index:    index,
		limit:    limit,
		observer: observer,
		points:   make([]domain.Point, 0, limit),
	}
}

func (b *pointBuffer) add(ctx context.Context, point domain.Point) error {
	b.points = append(b.points, point)
	if len(b.points) >= b.limit {
		return b.flush(ctx)
	}
	return nil
}

func (b *pointBuffer) flush(ctx context.Context) error {
	if len(b.points) == 0 {
		return nil
	}
	if err := b.index.Upsert(ctx, b.points); err != nil {
		return err
	}
	if b.observer != nil {
		b.observer.RecordFlush()
	}
	b.points = b.points[:0]
	return nil
}

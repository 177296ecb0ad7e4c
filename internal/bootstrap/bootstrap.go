package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/procurex/tendersearch/internal/config"
	"github.com/procurex/tendersearch/internal/core/ports"
	"github.com/procurex/tendersearch/internal/core/usecase"
	"github.com/procurex/tendersearch/internal/infrastructure/chunking"
	"github.com/procurex/tendersearch/internal/infrastructure/corpus"
	"github.com/procurex/tendersearch/internal/infrastructure/extractor/ocr"
	"github.com/procurex/tendersearch/internal/infrastructure/extractor/pdf"
	"github.com/procurex/tendersearch/internal/infrastructure/lang"
	"github.com/procurex/tendersearch/internal/infrastructure/llm/ollama"
	"github.com/procurex/tendersearch/internal/infrastructure/metadata/excel"
	"github.com/procurex/tendersearch/internal/infrastructure/queue/nats"
	"github.com/procurex/tendersearch/internal/infrastructure/rerank/tei"
	"github.com/procurex/tendersearch/internal/infrastructure/repository/postgres"
	"github.com/procurex/tendersearch/internal/infrastructure/resilience"
	"github.com/procurex/tendersearch/internal/infrastructure/sparse"
	"github.com/procurex/tendersearch/internal/infrastructure/vector/qdrant"
	"github.com/procurex/tendersearch/internal/observability/metrics"
)

// App wires the retrieval and indexing pipelines with constructor
// injection. Both binaries share one wiring path so configuration
// drift between them is impossible.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Retriever *usecase.Retriever
	Indexer   *usecase.Indexer

	VectorIndex ports.VectorIndex
	Sparse      *sparse.Index
	Queue       *nats.Queue

	APIMetrics     *metrics.HTTPServerMetrics
	IndexerMetrics *metrics.IndexerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	manifest := postgres.NewManifestRepository(db)
	if err := manifest.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSIndexedSubject, cfg.NATSReindexSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.VectorDim, cfg.EmbedRPS, executor)
	if err := embedder.Init(ctx); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("probe embedding model: %w", err)
	}
	translator := ollama.NewTranslator(ollamaClient, executor)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.HNSWEfSearch)
	sparseIndex := sparse.NewIndex(cfg.BM25SnapshotPath)
	rerankClient := tei.New(cfg.RerankURL, executor)
	detector := lang.NewDetector()

	joiner, err := excel.NewJoiner(cfg.MetadataXLSX, cfg.CatalogIDDigits)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load catalog metadata: %w", err)
	}

	apiMetrics := metrics.NewHTTPServerMetrics("api")
	indexerMetrics := metrics.NewIndexerMetrics("indexer")

	reranker := usecase.NewReranker(
		rerankClient,
		cfg.RerankKeep,
		cfg.RerankWeight,
		cfg.RerankTextChars,
		cfg.CatalogIDDigits,
	)
	retriever := usecase.NewRetriever(
		embedder,
		vectorIndex,
		sparseIndex,
		reranker,
		translator,
		detector,
		logger,
		usecase.RetrieverConfig{
			CandidateLimit:   cfg.CandidateLimit,
			FinalK:           cfg.FinalK,
			MinScore:         cfg.MinScore,
			RRFK:             cfg.RRFK,
			UseHybrid:        cfg.UseHybrid,
			UseRerank:        cfg.UseRerank,
			CorpusLanguage:   cfg.QueryLanguage,
			ForceTranslation: cfg.ForceTranslation,
			DualQuery:        cfg.DualQueryEnabled,
		},
	)

	indexer := usecase.NewIndexer(
		corpus.New(cfg.CorpusDir),
		pdf.NewLoader(),
		ocr.New(cfg.OCRURL),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorIndex,
		joiner,
		manifest,
		queue,
		sparseIndex,
		indexerMetrics,
		logger,
		usecase.IndexerConfig{
			Mode:        cfg.IndexMode,
			FlushPoints: cfg.EmbedFlushPoints,
			Service:     "indexer",
		},
	)

	return &App{
		Config:         cfg,
		Logger:         logger,
		Retriever:      retriever,
		Indexer:        indexer,
		VectorIndex:    vectorIndex,
		Sparse:         sparseIndex,
		Queue:          queue,
		APIMetrics:     apiMetrics,
		IndexerMetrics: indexerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

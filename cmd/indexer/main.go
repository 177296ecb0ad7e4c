package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procurex/tendersearch/internal/bootstrap"
	"github.com/procurex/tendersearch/internal/config"
	"github.com/procurex/tendersearch/internal/observability/logging"
)

func main() {
	mode := flag.String("mode", "build", "build | ocr | bm25 | serve")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.IndexerMetricsPort,
		Handler: app.IndexerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	switch *mode {
	case "build":
		if err := app.Indexer.Build(ctx); err != nil {
			log.Fatalf("index build error: %v", err)
		}
		if err := app.Indexer.RebuildLexical(ctx); err != nil {
			log.Fatalf("lexical rebuild error: %v", err)
		}
	case "ocr":
		if err := app.Indexer.BuildOCROnly(ctx); err != nil {
			log.Fatalf("ocr pass error: %v", err)
		}
		if err := app.Indexer.RebuildLexical(ctx); err != nil {
			log.Fatalf("lexical rebuild error: %v", err)
		}
	case "bm25":
		if err := app.Indexer.RebuildLexical(ctx); err != nil {
			log.Fatalf("lexical rebuild error: %v", err)
		}
	case "serve":
		logger.Info("reindex_subscription_started", "subject", cfg.NATSReindexSubject)
		err := app.Queue.SubscribeReindexRequested(ctx, func(handlerCtx context.Context, sourcePath string) error {
			indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()
			return app.Indexer.IndexDocument(indexCtx, sourcePath)
		})
		if err != nil {
			log.Fatalf("reindex subscribe error: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q (build | ocr | bm25 | serve)", *mode)
	}
}

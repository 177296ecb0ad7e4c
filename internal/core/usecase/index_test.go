package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/procurex/tendersearch/internal/core/domain"
)

type indexFixture struct {
	corpus   *fakeCorpus
	loader   *fakeLoader
	ocr      *fakeLoader
	embedder *fakeEmbedder
	index    *fakeVectorIndex
	manifest *fakeManifest
	queue    *fakeQueue
	sparse   *fakeSparseIndexer
	indexer  *Indexer
}

func newIndexFixture(cfg IndexerConfig) *indexFixture {
	f := &indexFixture{
		corpus:   &fakeCorpus{hashes: map[string]string{}, hashErr: map[string]error{}},
		loader:   &fakeLoader{pages: map[string][]domain.Page{}},
		ocr:      &fakeLoader{pages: map[string][]domain.Page{}},
		embedder: &fakeEmbedder{dim: 4},
		index:    &fakeVectorIndex{dim: 4},
		manifest: newFakeManifest(),
		queue:    &fakeQueue{},
		sparse:   &fakeSparseIndexer{},
	}
	f.indexer = NewIndexer(
		f.corpus, f.loader, f.ocr, passthroughChunker{}, f.embedder,
		f.index, &fakeJoiner{catalogID: "12345678"}, f.manifest,
		f.queue, f.sparse, nil, nil, cfg,
	)
	return f
}

func (f *indexFixture) addDocument(path, text string) {
	f.corpus.paths = append(f.corpus.paths, path)
	f.loader.pages[path] = []domain.Page{{Number: 1, Text: text, SourcePath: path}}
}

func (f *indexFixture) totalPoints() int {
	total := 0
	for _, batch := range f.index.upserts {
		total += len(batch)
	}
	return total
}

func TestBuildFreshDropsAndRecreates(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if f.index.dropped != 1 {
		t.Fatalf("expected collection drop, got %d", f.index.dropped)
	}
	if len(f.index.created) != 1 || f.index.created[0] != 4 {
		t.Fatalf("expected create with dim 4, got %v", f.index.created)
	}
	if f.totalPoints() != 1 {
		t.Fatalf("expected 1 point, got %d", f.totalPoints())
	}
}

func TestBuildAppendDimMismatchAbortsBeforeWrites(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.index.dim = 768
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	err := f.indexer.Build(context.Background())
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if f.totalPoints() != 0 {
		t.Fatalf("writes happened despite dimension mismatch")
	}
	if len(f.embedder.passageCalls) != 0 {
		t.Fatalf("embedding happened despite dimension mismatch")
	}
}

func TestBuildAppendCreatesMissingCollection(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.index.dimErr = domain.WrapError(domain.ErrNotFound, "collection dim", errors.New("missing"))
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(f.index.created) != 1 || f.index.created[0] != 4 {
		t.Fatalf("expected collection created with dim 4, got %v", f.index.created)
	}
}

func TestBuildAssignsDeterministicPointIDs(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.corpus.hashes["a.pdf"] = "abc123"
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := f.index.upserts[0][0].ID
	if want := domain.PointID("abc123", 0); got != want {
		t.Fatalf("point id = %s, want %s", got, want)
	}
}

func TestBuildAppendSkipsUnchangedDocuments(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	first := f.totalPoints()

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if f.totalPoints() != first {
		t.Fatalf("unchanged document re-indexed: %d -> %d points", first, f.totalPoints())
	}
}

func TestBuildReindexesChangedContent(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.addDocument("a.pdf", "Wartung der Aufzüge")
	f.corpus.hashes["a.pdf"] = "v1"

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	f.corpus.hashes["a.pdf"] = "v2"
	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if f.totalPoints() != 2 {
		t.Fatalf("expected changed document re-indexed, got %d points", f.totalPoints())
	}
}

func TestBuildRecordsNoTextDocuments(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.corpus.paths = append(f.corpus.paths, "scan.pdf")
	f.loader.pages["scan.pdf"] = []domain.Page{{Number: 1, Text: "   "}}

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rec, err := f.manifest.Get(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("manifest record missing: %v", err)
	}
	if rec.Status != domain.StatusNoText {
		t.Fatalf("status = %s, want %s", rec.Status, domain.StatusNoText)
	}
	if f.totalPoints() != 0 {
		t.Fatalf("no-text document produced points")
	}
}

func TestBuildContinuesPastFailedDocuments(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.addDocument("bad.pdf", "ignored")
	f.corpus.hashErr["bad.pdf"] = errors.New("unreadable")
	f.addDocument("good.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rec, err := f.manifest.Get(context.Background(), "bad.pdf")
	if err != nil {
		t.Fatalf("failed document missing from manifest: %v", err)
	}
	if rec.Status != domain.StatusFailed || rec.Error == "" {
		t.Fatalf("unexpected failure record %+v", rec)
	}
	if f.totalPoints() != 1 {
		t.Fatalf("expected good document indexed, got %d points", f.totalPoints())
	}
}

func TestBuildFlushesAtThreshold(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh, FlushPoints: 2})
	f.corpus.paths = append(f.corpus.paths, "multi.pdf")
	f.loader.pages["multi.pdf"] = []domain.Page{
		{Number: 1, Text: "erste Seite"},
		{Number: 2, Text: "zweite Seite"},
		{Number: 3, Text: "dritte Seite"},
	}

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(f.index.upserts) != 2 {
		t.Fatalf("expected 2 upsert batches, got %d", len(f.index.upserts))
	}
	if len(f.index.upserts[0]) != 2 || len(f.index.upserts[1]) != 1 {
		t.Fatalf("unexpected batch sizes %d/%d", len(f.index.upserts[0]), len(f.index.upserts[1]))
	}
}

func TestBuildPublishesIndexedEvents(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(f.queue.published) != 1 || f.queue.published[0] != "a.pdf" {
		t.Fatalf("published = %v, want [a.pdf]", f.queue.published)
	}
}

func TestBuildPublishFailureDoesNotFailDocument(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeFresh})
	f.queue.err = errors.New("broker down")
	f.addDocument("a.pdf", "Wartung der Aufzüge")

	if err := f.indexer.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rec, err := f.manifest.Get(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("manifest record missing: %v", err)
	}
	if rec.Status != domain.StatusIndexed {
		t.Fatalf("status = %s, want indexed", rec.Status)
	}
}

func TestBuildOCROnlyProcessesNoTextEntries(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.manifest.Upsert(context.Background(), domain.DocumentRecord{
		SourcePath: "scan.pdf", DocHash: "old", Status: domain.StatusNoText,
	})
	f.ocr.pages["scan.pdf"] = []domain.Page{{Number: 1, Text: "erkannter Text aus dem Scan"}}

	if err := f.indexer.BuildOCROnly(context.Background()); err != nil {
		t.Fatalf("BuildOCROnly() error = %v", err)
	}
	if f.totalPoints() != 1 {
		t.Fatalf("expected 1 OCR point, got %d", f.totalPoints())
	}
	if !f.index.upserts[0][0].Payload.OCR {
		t.Fatalf("OCR flag not set on payload")
	}
	rec, _ := f.manifest.Get(context.Background(), "scan.pdf")
	if rec.Status != domain.StatusIndexed || !rec.OCR {
		t.Fatalf("unexpected record after OCR pass: %+v", rec)
	}
}

func TestIndexDocumentSingle(t *testing.T) {
	f := newIndexFixture(IndexerConfig{Mode: IndexModeAppend})
	f.loader.pages["new.pdf"] = []domain.Page{{Number: 1, Text: "neue Ausschreibung"}}

	if err := f.indexer.IndexDocument(context.Background(), "new.pdf"); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if f.totalPoints() != 1 {
		t.Fatalf("expected 1 point, got %d", f.totalPoints())
	}
}

func TestRebuildLexicalScrollsAllPoints(t *testing.T) {
	f := newIndexFixture(IndexerConfig{})
	f.index.scrollPoints = []domain.Point{
		{ID: "p1", Payload: domain.Payload{Text: "Wartung Aufzug", SourcePath: "a.pdf"}},
		{ID: "p2", Payload: domain.Payload{Text: "Neubau Schule", SourcePath: "b.pdf"}},
	}

	if err := f.indexer.RebuildLexical(context.Background()); err != nil {
		t.Fatalf("RebuildLexical() error = %v", err)
	}
	if len(f.sparse.docs) != 2 {
		t.Fatalf("expected 2 lexical docs, got %d", len(f.sparse.docs))
	}
	if f.sparse.docs[0].ID != "p1" || f.sparse.docs[0].Text != "Wartung Aufzug" {
		t.Fatalf("unexpected lexical doc %+v", f.sparse.docs[0])
	}
	if f.sparse.docs[1].Payload.SourcePath != "b.pdf" {
		t.Fatalf("payload not carried into lexical doc")
	}
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/procurex/tendersearch/internal/core/domain"
)

type fakeEmbedder struct {
	dim          int
	queries      []string
	passageCalls [][]string
	err          error
}

func (f *fakeEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.passageCalls = append(f.passageCalls, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) Dim() int { return f.dim }

type fakeVectorIndex struct {
	mu            sync.Mutex
	dim           int
	dimErr        error
	hits          []domain.Hit
	searchErr     error
	upserts       [][]domain.Point
	created       []int
	dropped       int
	scrollPoints  []domain.Point
	searchMinimum []float64
}

func (f *fakeVectorIndex) Create(_ context.Context, dim int) error {
	f.created = append(f.created, dim)
	return nil
}

func (f *fakeVectorIndex) Drop(context.Context) error {
	f.dropped++
	return nil
}

func (f *fakeVectorIndex) CollectionDim(context.Context) (int, error) {
	if f.dimErr != nil {
		return 0, f.dimErr
	}
	return f.dim, nil
}

func (f *fakeVectorIndex) Upsert(_ context.Context, points []domain.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]domain.Point, len(points))
	copy(batch, points)
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeVectorIndex) Search(_ context.Context, _ []float32, _ int, minScore float64) ([]domain.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.searchMinimum = append(f.searchMinimum, minScore)
	return f.hits, nil
}

func (f *fakeVectorIndex) Scroll(_ context.Context, fn func(id string, payload domain.Payload) error) error {
	for _, p := range f.scrollPoints {
		if err := fn(p.ID, p.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeVectorIndex) Count(context.Context) (int, error) {
	total := 0
	for _, batch := range f.upserts {
		total += len(batch)
	}
	return total, nil
}

type fakeSparse struct {
	hits  []domain.Hit
	err   error
	calls int
}

func (f *fakeSparse) Search(context.Context, string, int) ([]domain.Hit, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeSparse) Reload() error { return nil }

type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	out := make([]float64, len(passages))
	return out, nil
}

type fakeTranslator struct {
	out   string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return text, nil
}

type fakeDetector struct {
	lang string
	ok   bool
}

func (f *fakeDetector) Detect(string) (string, bool) { return f.lang, f.ok }

type fakeCorpus struct {
	paths   []string
	hashes  map[string]string
	hashErr map[string]error
}

func (f *fakeCorpus) ListDocuments(context.Context) ([]string, error) { return f.paths, nil }

func (f *fakeCorpus) HashDocument(path string) (string, error) {
	if err := f.hashErr[path]; err != nil {
		return "", err
	}
	if h, ok := f.hashes[path]; ok {
		return h, nil
	}
	return "hash-" + path, nil
}

type fakeLoader struct {
	pages map[string][]domain.Page
	err   error
}

func (f *fakeLoader) LoadPages(_ context.Context, path string) ([]domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[path], nil
}

type passthroughChunker struct{}

// Split turns each non-empty page into one chunk, enough to exercise
// the indexing flow without real windowing.
func (passthroughChunker) Split(pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       text,
			SourcePath: p.SourcePath,
			PageStart:  p.Number,
			PageEnd:    p.Number,
		})
	}
	return chunks
}

type fakeManifest struct {
	mu      sync.Mutex
	records map[string]domain.DocumentRecord
	upserts []domain.DocumentRecord
}

func newFakeManifest() *fakeManifest {
	return &fakeManifest{records: make(map[string]domain.DocumentRecord)}
}

func (f *fakeManifest) Upsert(_ context.Context, rec domain.DocumentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.SourcePath] = rec
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeManifest) Get(_ context.Context, sourcePath string) (*domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sourcePath]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "manifest get", fmt.Errorf("no record for %s", sourcePath))
	}
	return &rec, nil
}

func (f *fakeManifest) ListByStatus(_ context.Context, status domain.DocumentStatus) ([]domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DocumentRecord
	for _, rec := range f.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishDocumentIndexed(_ context.Context, sourcePath string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, sourcePath)
	return nil
}

func (f *fakeQueue) SubscribeReindexRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeSparseIndexer struct {
	docs []domain.LexicalDocument
	err  error
}

func (f *fakeSparseIndexer) Build(docs []domain.LexicalDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs = docs
	return nil
}

type fakeJoiner struct {
	catalogID string
}

func (f *fakeJoiner) Enrich(payload *domain.Payload) {
	payload.CatalogID = f.catalogID
}

func hitList(ids ...string) []domain.Hit {
	hits := make([]domain.Hit, 0, len(ids))
	for i, id := range ids {
		hits = append(hits, domain.Hit{
			ID:    id,
			Text:  "text " + id,
			Score: 1.0 - float64(i)*0.1,
		})
	}
	return hits
}

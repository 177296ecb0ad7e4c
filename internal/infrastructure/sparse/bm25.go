package sparse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/procurex/tendersearch/internal/core/domain"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Index is an in-process BM25 index over the corpus snapshot.
// It is rebuilt in full from a vector-store scroll, persisted as JSON
// and loaded lazily on first search. Reload swaps the loaded state so
// a running query process can pick up a rebuild without restarting.
type Index struct {
	path string

	mu sync.RWMutex
	st *state
}

type state struct {
	docs   []docState
	df     map[string]int
	avgLen float64
}

type docState struct {
	id      string
	length  int
	tf      map[string]int
	payload domain.Payload
}

type snapshotDoc struct {
	ID      string         `json:"id"`
	Length  int            `json:"len"`
	TF      map[string]int `json:"tf"`
	Payload domain.Payload `json:"payload"`
}

type snapshot struct {
	Docs []snapshotDoc `json:"docs"`
}

func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Tokenize lowercases, splits on non-alphanumeric boundaries and drops
// stopwords and tokens shorter than two runes. Digits survive so that
// catalog identifiers stay searchable.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	out := make([]string, 0, 32)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if len([]rune(token)) < 2 {
			return
		}
		if _, stop := germanStopwords[token]; stop {
			return
		}
		out = append(out, token)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}

// Build replaces the index contents from a full corpus snapshot and
// persists it. Documents that tokenize to nothing are skipped; a corpus
// that yields no indexable document at all is a configuration fault.
func (i *Index) Build(docs []domain.LexicalDocument) error {
	if len(docs) == 0 {
		return domain.WrapError(domain.ErrConfiguration, "bm25 build", fmt.Errorf("empty document list"))
	}

	st := &state{df: make(map[string]int)}
	var totalLen int
	for _, doc := range docs {
		tokens := Tokenize(doc.Text)
		if len(tokens) == 0 {
			continue
		}
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			st.df[tok]++
		}
		totalLen += len(tokens)
		st.docs = append(st.docs, docState{
			id:      doc.ID,
			length:  len(tokens),
			tf:      tf,
			payload: doc.Payload,
		})
	}
	if len(st.docs) == 0 {
		return domain.WrapError(domain.ErrConfiguration, "bm25 build", fmt.Errorf("all documents empty after tokenization"))
	}
	st.avgLen = float64(totalLen) / float64(len(st.docs))

	if err := i.persist(st); err != nil {
		return err
	}

	i.mu.Lock()
	i.st = st
	i.mu.Unlock()
	return nil
}

func (i *Index) persist(st *state) error {
	snap := snapshot{Docs: make([]snapshotDoc, 0, len(st.docs))}
	for _, d := range st.docs {
		snap.Docs = append(snap.Docs, snapshotDoc{
			ID:      d.id,
			Length:  d.length,
			TF:      d.tf,
			Payload: d.payload,
		})
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode bm25 snapshot: %w", err)
	}
	if dir := filepath.Dir(i.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := os.WriteFile(i.path, data, 0o644); err != nil {
		return fmt.Errorf("write bm25 snapshot: %w", err)
	}
	return nil
}

// Reload re-reads the persisted snapshot, replacing the in-memory
// state. In-flight searches keep scoring against the old snapshot.
func (i *Index) Reload() error {
	st, err := i.loadSnapshot()
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.st = st
	i.mu.Unlock()
	return nil
}

func (i *Index) loadSnapshot() (*state, error) {
	data, err := os.ReadFile(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.WrapError(domain.ErrNotFound, "bm25 load", err)
		}
		return nil, fmt.Errorf("read bm25 snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode bm25 snapshot %s: %w", i.path, err)
	}

	st := &state{df: make(map[string]int)}
	var totalLen int
	for _, d := range snap.Docs {
		for tok := range d.TF {
			st.df[tok]++
		}
		totalLen += d.Length
		st.docs = append(st.docs, docState{
			id:      d.ID,
			length:  d.Length,
			tf:      d.TF,
			payload: d.Payload,
		})
	}
	if len(st.docs) > 0 {
		st.avgLen = float64(totalLen) / float64(len(st.docs))
	}
	return st, nil
}

// current returns the loaded state, loading the snapshot on first use.
func (i *Index) current() (*state, error) {
	i.mu.RLock()
	st := i.st
	i.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.st == nil {
		loaded, err := i.loadSnapshot()
		if err != nil {
			return nil, err
		}
		i.st = loaded
	}
	return i.st, nil
}

// Search scores every indexed document against the query tokens. A
// query that tokenizes to nothing returns an empty result, not an
// error: stopword-only queries are an expected input.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	st, err := i.current()
	if err != nil {
		return nil, err
	}

	n := float64(len(st.docs))
	hits := make([]domain.Hit, 0, limit)
	for _, doc := range st.docs {
		score := 0.0
		for _, tok := range tokens {
			tf, present := doc.tf[tok]
			if !present {
				continue
			}
			df := float64(st.df[tok])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := bm25K1 * (1 - bm25B + bm25B*float64(doc.length)/st.avgLen)
			score += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + norm)
		}
		if score <= 0 {
			continue
		}
		hits = append(hits, domain.Hit{
			ID:      doc.id,
			Text:    doc.payload.Text,
			Score:   score,
			Payload: doc.payload,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

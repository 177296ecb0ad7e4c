package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Page is raw extracted text for a single physical page.
type Page struct {
	Number     int
	Text       string
	SourcePath string
}

// Chunk is an immutable, pipeline-scoped slice of document text.
// PageStart/PageEnd are 1-based and inclusive.
type Chunk struct {
	Index      int
	Text       string
	SourcePath string
	PageStart  int
	PageEnd    int
	Meta       map[string]string
}

// SnippetLimit caps the payload text stored alongside each point.
const SnippetLimit = 1500

// Payload is the typed record stored with every indexed point.
// Externally joined metadata lives in Extra.
type Payload struct {
	SourcePath string            `json:"source_path"`
	ChunkIndex int               `json:"chunk_idx"`
	PageStart  int               `json:"page_start"`
	PageEnd    int               `json:"page_end"`
	DocHash    string            `json:"doc_hash"`
	Text       string            `json:"text"`
	CatalogID  string            `json:"catalog_id,omitempty"`
	OCR        bool              `json:"ocr,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Point is one upsert unit for the vector index.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// PointID derives the deterministic point identifier for a chunk.
// It is a pure function of (docHash, chunkIndex): re-indexing an
// unchanged document overwrites its own points instead of duplicating.
func PointID(docHash string, chunkIndex int) string {
	name := fmt.Sprintf("%s|%d", docHash, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Snippet truncates chunk text to the stored payload budget.
func Snippet(text string) string {
	return Truncate(text, SnippetLimit)
}

// Truncate cuts text to at most limit bytes without splitting a rune,
// so truncated payloads stay valid UTF-8.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

type DocumentStatus string

const (
	StatusIndexed DocumentStatus = "indexed"
	StatusNoText  DocumentStatus = "no_text"
	StatusFailed  DocumentStatus = "failed"
)

// DocumentRecord is the manifest row tracking one source document's
// latest indexing outcome.
type DocumentRecord struct {
	SourcePath string
	DocHash    string
	Status     DocumentStatus
	ChunkCount int
	CatalogID  string
	OCR        bool
	Error      string
	IndexedAt  time.Time
}

package chunking

import (
	"strings"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// Splitter cuts page text into overlapping chunks of at most ChunkSize
// runes. The last Overlap runes of an emitted chunk seed the next one,
// and every chunk records the 1-based span of pages it draws from.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// pageSpan marks where a page's text begins inside the rolling buffer.
type pageSpan struct {
	page  int
	start int
}

// Split is a pure function over extracted pages. Empty pages contribute
// nothing; a trailing partial chunk is flushed only when it contains
// text that no previous chunk has emitted, so an overlap seed alone
// never becomes a chunk.
func (s *Splitter) Split(pages []domain.Page) []domain.Chunk {
	var (
		buf        []rune
		spans      []pageSpan
		chunks     []domain.Chunk
		sourcePath string
		emitted    int
	)

	appendChunk := func(text string, pageStart, pageEnd int) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       text,
			SourcePath: sourcePath,
			PageStart:  pageStart,
			PageEnd:    pageEnd,
		})
	}

	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		if sourcePath == "" {
			sourcePath = page.SourcePath
		}
		if len(buf) > 0 {
			buf = append(buf, '\n')
		}
		spans = append(spans, pageSpan{page: page.Number, start: len(buf)})
		buf = append(buf, []rune(text)...)

		for len(buf) >= s.ChunkSize {
			appendChunk(string(buf[:s.ChunkSize]), pageAt(spans, 0), pageAt(spans, s.ChunkSize-1))
			cut := s.ChunkSize - s.Overlap
			buf = buf[cut:]
			spans = shiftSpans(spans, cut)
			emitted = s.Overlap
		}
	}

	if len(buf) > emitted {
		appendChunk(string(buf), pageAt(spans, 0), pageAt(spans, len(buf)-1))
	}
	return chunks
}

// pageAt resolves the page owning the rune at the given buffer offset.
func pageAt(spans []pageSpan, offset int) int {
	if len(spans) == 0 {
		return 0
	}
	page := spans[0].page
	for _, sp := range spans {
		if sp.start > offset {
			break
		}
		page = sp.page
	}
	return page
}

// shiftSpans rebases span offsets after dropping the first cut runes.
// The span covering the cut point survives with offset zero.
func shiftSpans(spans []pageSpan, cut int) []pageSpan {
	out := make([]pageSpan, 0, len(spans))
	for i, sp := range spans {
		switch {
		case sp.start > cut:
			out = append(out, pageSpan{page: sp.page, start: sp.start - cut})
		case i+1 == len(spans) || spans[i+1].start > cut:
			out = append(out, pageSpan{page: sp.page, start: 0})
		}
	}
	return out
}

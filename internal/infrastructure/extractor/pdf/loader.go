package pdf

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// Loader extracts per-page plain text from PDF files with embedded
// text layers. Scanned documents come back with empty pages and are
// routed through the OCR loader instead.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) LoadPages(ctx context.Context, path string) ([]domain.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: num, SourcePath: path})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the document.
			pages = append(pages, domain.Page{Number: num, SourcePath: path})
			continue
		}
		pages = append(pages, domain.Page{Number: num, Text: text, SourcePath: path})
	}
	return pages, nil
}

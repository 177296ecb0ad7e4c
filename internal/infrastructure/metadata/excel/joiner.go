package excel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// Joiner enriches chunk payloads with curated tender metadata from the
// cleaned Excel export. Rows are keyed by the catalog (DTAD) id, which
// is also derivable from the document path, so the joiner works in a
// degraded id-only mode when no workbook is configured.
type Joiner struct {
	idPattern *regexp.Regexp
	rows      map[string]map[string]string
}

// NewJoiner loads the workbook's first sheet into memory. An empty
// path yields an id-only joiner.
func NewJoiner(workbookPath string, idDigits int) (*Joiner, error) {
	if idDigits <= 0 {
		idDigits = 8
	}
	j := &Joiner{
		idPattern: regexp.MustCompile(fmt.Sprintf(`DTAD[_-]?(\d{%d})`, idDigits)),
	}
	if workbookPath == "" {
		return j, nil
	}

	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata workbook %s: %w", workbookPath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "metadata workbook",
			fmt.Errorf("%s has no sheets", workbookPath))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrConfiguration, "metadata workbook",
			fmt.Errorf("%s has no data rows", workbookPath))
	}

	header := rows[0]
	idCol := 0
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "dtad") {
			idCol = i
			break
		}
	}

	j.rows = make(map[string]map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		if idCol >= len(row) {
			continue
		}
		id := normalizeID(row[idCol])
		if id == "" {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i == idCol || i >= len(row) {
				continue
			}
			key := columnKey(name)
			value := strings.TrimSpace(row[i])
			if key == "" || value == "" {
				continue
			}
			fields[key] = value
		}
		j.rows[id] = fields
	}
	return j, nil
}

// Enrich derives the catalog id from the payload's source path and
// merges the matching workbook row into Extra. Missing metadata is
// not an error: the chunk stays searchable either way.
func (j *Joiner) Enrich(payload *domain.Payload) {
	if payload == nil {
		return
	}
	if payload.CatalogID == "" {
		if m := j.idPattern.FindStringSubmatch(payload.SourcePath); m != nil {
			payload.CatalogID = m[1]
		}
	}
	if payload.CatalogID == "" || j.rows == nil {
		return
	}
	fields, ok := j.rows[payload.CatalogID]
	if !ok {
		return
	}
	if payload.Extra == nil {
		payload.Extra = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		if _, exists := payload.Extra[k]; !exists {
			payload.Extra[k] = v
		}
	}
}

func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "DTAD_")
	raw = strings.TrimPrefix(raw, "DTAD-")
	return raw
}

func columnKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

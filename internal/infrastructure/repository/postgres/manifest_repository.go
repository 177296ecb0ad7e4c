package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// ManifestRepository tracks the latest indexing outcome per source
// document. It replaces ad-hoc processed-hash files: the append pass
// skips unchanged documents through it and the OCR-only pass scans it
// for documents that yielded no text layer.
type ManifestRepository struct {
	db *sql.DB
}

func NewManifestRepository(db *sql.DB) *ManifestRepository {
	return &ManifestRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ManifestRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS indexed_documents (
	source_path TEXT PRIMARY KEY,
	doc_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	catalog_id TEXT,
	ocr BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT,
	indexed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_indexed_documents_status ON indexed_documents(status);
CREATE INDEX IF NOT EXISTS idx_indexed_documents_doc_hash ON indexed_documents(doc_hash);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ManifestRepository) Upsert(ctx context.Context, rec domain.DocumentRecord) error {
	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO indexed_documents (source_path, doc_hash, status, chunk_count, catalog_id, ocr, error_message, indexed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (source_path) DO UPDATE SET
	doc_hash = EXCLUDED.doc_hash,
	status = EXCLUDED.status,
	chunk_count = EXCLUDED.chunk_count,
	catalog_id = EXCLUDED.catalog_id,
	ocr = EXCLUDED.ocr,
	error_message = EXCLUDED.error_message,
	indexed_at = EXCLUDED.indexed_at
`,
		rec.SourcePath, rec.DocHash, string(rec.Status), rec.ChunkCount,
		rec.CatalogID, rec.OCR, rec.Error, indexedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert manifest row: %w", err)
	}
	return nil
}

func (r *ManifestRepository) Get(ctx context.Context, sourcePath string) (*domain.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT source_path, doc_hash, status, chunk_count, catalog_id, ocr, error_message, indexed_at
FROM indexed_documents
WHERE source_path = $1
`, sourcePath)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "manifest get", fmt.Errorf("no record for %s", sourcePath))
		}
		return nil, fmt.Errorf("scan manifest row: %w", err)
	}
	return rec, nil
}

func (r *ManifestRepository) ListByStatus(ctx context.Context, status domain.DocumentStatus) ([]domain.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_path, doc_hash, status, chunk_count, catalog_id, ocr, error_message, indexed_at
FROM indexed_documents
WHERE status = $1
ORDER BY source_path
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query manifest by status: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest rows: %w", err)
	}
	return out, nil
}

func scanRecord(scan func(dest ...any) error) (*domain.DocumentRecord, error) {
	var (
		rec       domain.DocumentRecord
		status    string
		catalogID sql.NullString
		errMsg    sql.NullString
	)
	err := scan(
		&rec.SourcePath, &rec.DocHash, &status, &rec.ChunkCount,
		&catalogID, &rec.OCR, &errMsg, &rec.IndexedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.DocumentStatus(status)
	rec.CatalogID = catalogID.String
	rec.Error = errMsg.String
	return &rec, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/salesledger/internal/store"
	"github.com/lib/pq"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection     TEXT        NOT NULL,
	id             TEXT        NOT NULL,
	schema_version INTEGER     NOT NULL DEFAULT 1,
	data           JSONB       NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);
`

// DocumentRepository stores every collection in one JSONB table.
type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Migrate creates the documents table if it is missing.
func (r *DocumentRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, collection string) ([]store.Document, error) {
	query := `
		SELECT id, data, schema_version, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`
	var docs []store.Document
	if err := r.db.SelectContext(ctx, &docs, query, collection); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return docs, nil
}

func (r *DocumentRepository) Apply(ctx context.Context, collection string, upserts []store.Document, deletes []string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if len(deletes) > 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`,
				collection, pq.Array(deletes),
			); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", collection, err)
			}
		}

		if len(upserts) == 0 {
			return nil
		}

		query := `
			INSERT INTO documents (collection, id, schema_version, data, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id)
			DO UPDATE SET
				schema_version = EXCLUDED.schema_version,
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at
		`
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, d := range upserts {
			if _, err := stmt.ExecContext(ctx, collection, d.ID, d.SchemaVersion, []byte(d.Data), d.UpdatedAt); err != nil {
				return fmt.Errorf("failed to upsert %s/%s: %w", collection, d.ID, err)
			}
		}
		return nil
	})
}

// Count returns the number of documents per collection.
func (r *DocumentRepository) Count(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Collection string `db:"collection"`
		Total      int    `db:"total"`
	}
	query := `SELECT collection, COUNT(*) AS total FROM documents GROUP BY collection`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Collection] = row.Total
	}
	return out, nil
}

var _ store.RemoteStore = (*DocumentRepository)(nil)

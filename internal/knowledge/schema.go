package knowledge

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the knowledge tables when they do not exist yet.
// Embedding dimensions are fixed at table creation; use
// EnsureEmbeddingDimensions to migrate after an embedding model change.
func EnsureSchema(ctx context.Context, db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE SCHEMA IF NOT EXISTS orion`,
		`CREATE TABLE IF NOT EXISTS orion.orion_companies (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			profile TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orion.orion_faqs (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL REFERENCES orion.orion_companies(id) ON DELETE CASCADE,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS orion_faqs_company_idx ON orion.orion_faqs (company_id)`,
		`CREATE INDEX IF NOT EXISTS orion_faqs_embedding_idx ON orion.orion_faqs USING hnsw (embedding vector_cosine_ops) WITH (m = 24, ef_construction = 256)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure knowledge schema: %w", err)
		}
	}
	return nil
}

// EnsureEmbeddingDimensions checks whether the embedding vector column matches
// the target dimension count. When they differ it clears stale vectors, alters
// the column type, and rebuilds the HNSW index.
// Returns true when a migration was performed.
func EnsureEmbeddingDimensions(ctx context.Context, db *sql.DB, target int) (bool, error) {
	if target <= 0 {
		return false, fmt.Errorf("invalid embedding dimensions: %d", target)
	}

	// pgvector stores the dimension count in atttypmod for vector(N) columns.
	var current int
	err := db.QueryRowContext(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'orion.orion_faqs'::regclass
		  AND attname = 'embedding'
	`).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("query current embedding dimensions: %w", err)
	}

	if current == target {
		return false, nil
	}

	// Dimensions changed: old embeddings are from a different model and
	// cannot be meaningfully searched, so we null them before altering.
	// FAQ text survives and can be re-embedded.
	stmts := []string{
		`DROP INDEX IF EXISTS orion.orion_faqs_embedding_idx`,
		`UPDATE orion.orion_faqs SET embedding = NULL`,
		fmt.Sprintf(`ALTER TABLE orion.orion_faqs ALTER COLUMN embedding TYPE vector(%d) USING NULL`, target),
		`CREATE INDEX orion_faqs_embedding_idx ON orion.orion_faqs USING hnsw (embedding vector_cosine_ops) WITH (m = 24, ef_construction = 256)`,
	}
	for _, stmt := range stmts {
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			return false, fmt.Errorf("migrate embedding dimensions (%d to %d): %w", current, target, execErr)
		}
	}

	return true, nil
}

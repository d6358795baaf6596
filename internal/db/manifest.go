package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is one row of the ingestion manifest.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	LLMCalls    int       `json:"llm_calls"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Manifest provides access to the ingested-documents table.
type Manifest struct {
	db *DB
}

// NewManifest creates a Manifest backed by the given database.
func NewManifest(database *DB) *Manifest {
	return &Manifest{db: database}
}

// Record upserts the manifest row for a file after ingestion.
func (m *Manifest) Record(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_name, content_hash, chunk_count, llm_calls)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_name) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			llm_calls = excluded.llm_calls,
			ingested_at = datetime('now')`,
		doc.ID, doc.FileName, doc.ContentHash, doc.ChunkCount, doc.LLMCalls,
	)
	if err != nil {
		return fmt.Errorf("recording document %s: %w", doc.FileName, err)
	}
	return nil
}

// Hash returns the stored content hash for a file name, or "" if the file
// has not been ingested.
func (m *Manifest) Hash(ctx context.Context, fileName string) (string, error) {
	var hash string
	err := m.db.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE file_name = ?`, fileName).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", fileName, err)
	}
	return hash, nil
}

// List returns all manifest rows, most recently ingested first.
func (m *Manifest) List(ctx context.Context) ([]Document, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, file_name, content_hash, chunk_count, llm_calls, ingested_at
		FROM documents ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.ContentHash, &d.ChunkCount, &d.LLMCalls, &d.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

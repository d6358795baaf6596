package vectorstore

import "context"

// Store defines the interface for the hybrid policy-chunk store.
type Store interface {
	// EnsureCollection creates the collection and payload indexes if they
	// do not exist yet.
	EnsureCollection(ctx context.Context) error

	// Upsert adds or updates hybrid points.
	Upsert(ctx context.Context, points []Point) error

	// HybridSearch runs a dense+sparse fusion query and returns ranked chunks.
	HybridSearch(ctx context.Context, q HybridQuery) ([]Chunk, error)

	// Close releases the underlying connection.
	Close() error
}

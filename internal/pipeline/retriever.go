package pipeline

import (
	"context"
	"fmt"

	"github.com/policyrag/policyrag/internal/inference"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

// Embedder produces a hybrid embedding for a query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (*inference.Embedding, error)
}

// Retriever embeds the query and runs the hybrid fusion search. Unlike the
// router this stage is not failsafe: with no context there is no safe answer.
type Retriever struct {
	embedder Embedder
	store    vectorstore.Store
	k        int
}

// NewRetriever creates a Retriever with fan-out size k.
func NewRetriever(embedder Embedder, store vectorstore.Store, k int) *Retriever {
	return &Retriever{embedder: embedder, store: store, k: k}
}

// Retrieve returns up to k fused chunks for the query text.
func (r *Retriever) Retrieve(ctx context.Context, text string) ([]vectorstore.Chunk, error) {
	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := r.store.HybridSearch(ctx, vectorstore.HybridQuery{
		Dense:         emb.Dense,
		SparseIndices: emb.SparseIndices,
		SparseValues:  emb.SparseValues,
		Limit:         r.k,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return chunks, nil
}

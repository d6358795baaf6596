package pipeline

import (
	"context"
	"sort"

	"github.com/policyrag/policyrag/internal/vectorstore"
)

// Reranker scores documents against a query. Higher is more relevant; the
// range is the cross-encoder's raw output, not a probability.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Evaluator re-ranks retrieved chunks and applies the confidence gate that
// keeps generation from running over irrelevant context.
type Evaluator struct {
	reranker  Reranker
	threshold float64
}

// NewEvaluator creates an Evaluator with the given score threshold.
func NewEvaluator(reranker Reranker, threshold float64) *Evaluator {
	return &Evaluator{reranker: reranker, threshold: threshold}
}

// EvaluateAndRerank assigns a relevance score to every chunk, drops chunks
// below the threshold, and sorts survivors by descending score (stable, so
// ties keep retrieval order). Confidence is simply whether at least one
// chunk survived. Empty input returns (nil, false, nil) without an RPC.
func (e *Evaluator) EvaluateAndRerank(ctx context.Context, query string, chunks []vectorstore.Chunk) ([]vectorstore.Chunk, bool, error) {
	if len(chunks) == 0 {
		return nil, false, nil
	}

	documents := make([]string, len(chunks))
	for i, c := range chunks {
		documents[i] = c.Content
	}

	scores, err := e.reranker.Rerank(ctx, query, documents)
	if err != nil {
		return nil, false, err
	}

	valid := make([]vectorstore.Chunk, 0, len(chunks))
	for i := range chunks {
		score := scores[i]
		chunks[i].Score = &score
		if score >= e.threshold {
			valid = append(valid, chunks[i])
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return *valid[i].Score > *valid[j].Score
	})

	return valid, len(valid) > 0, nil
}

// Package inference wraps the external embedding/re-ranking service.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Heavy tensor operations on the inference side can take a while; keep
	// the timeout generous but finite.
	requestTimeout = 30 * time.Second

	maxConns     = 500
	maxIdleConns = 100
)

// Embedding holds the dense and sparse vectors for a single text.
type Embedding struct {
	Dense         []float32
	SparseIndices []uint32
	SparseValues  []float32
}

// Client is a pooled HTTP client for the inference service. One instance
// is shared by all request tasks.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the inference service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     maxConns,
				MaxIdleConnsPerHost: maxIdleConns,
			},
		},
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	DenseVector   []float32 `json:"dense_vector"`
	SparseIndices []uint32  `json:"sparse_indices"`
	SparseValues  []float32 `json:"sparse_values"`
}

// Embed calls the /embed endpoint and returns the hybrid embedding for text.
func (c *Client) Embed(ctx context.Context, text string) (*Embedding, error) {
	var resp embedResponse
	if err := c.post(ctx, "/embed", embedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	return &Embedding{
		Dense:         resp.DenseVector,
		SparseIndices: resp.SparseIndices,
		SparseValues:  resp.SparseValues,
	}, nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank calls the /rerank endpoint and returns one relevance score per
// document. An empty document list short-circuits without an RPC.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var resp rerankResponse
	if err := c.post(ctx, "/rerank", rerankRequest{Query: query, Documents: documents}, &resp); err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	if len(resp.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank returned %d scores, expected %d", len(resp.Scores), len(documents))
	}
	return resp.Scores, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

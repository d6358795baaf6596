// Package ingest builds the policy knowledge base: partition documents,
// summarize tables for embedding, embed every chunk (dense + sparse), and
// upsert the hybrid points with their payload metadata.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/policyrag/policyrag/internal/db"
	"github.com/policyrag/policyrag/internal/inference"
	"github.com/policyrag/policyrag/internal/llm"
	"github.com/policyrag/policyrag/internal/partition"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

const (
	defaultSection = "General Policy"

	tableSummaryPrompt = "Provide a detailed semantic summary of the following HR policy table's purpose, rules, and relationships so it can be vector searched accurately:\n\n"

	summaryTemperature = 0.1
)

// Partitioner turns a document into a flat element list.
type Partitioner interface {
	Partition(ctx context.Context, fileName string, content []byte) ([]partition.Element, error)
}

// Embedder produces a hybrid embedding for a chunk of text.
type Embedder interface {
	Embed(ctx context.Context, text string) (*inference.Embedding, error)
}

// ProgressFunc reports per-element progress for one file.
type ProgressFunc func(current, total int, message string)

// Result summarizes one file's ingestion.
type Result struct {
	FileName string
	Skipped  bool
	Chunks   int
	LLMCalls int
}

// Pipeline orchestrates the ingestion workflow for policy documents.
type Pipeline struct {
	partitioner Partitioner
	embedder    Embedder
	store       vectorstore.Store
	provider    llm.Provider
	model       string
	manifest    *db.Manifest
	force       bool
	onProgress  ProgressFunc
}

// NewPipeline creates an ingestion Pipeline. manifest may be nil to disable
// change detection.
func NewPipeline(partitioner Partitioner, embedder Embedder, store vectorstore.Store, provider llm.Provider, model string, manifest *db.Manifest) *Pipeline {
	return &Pipeline{
		partitioner: partitioner,
		embedder:    embedder,
		store:       store,
		provider:    provider,
		model:       model,
		manifest:    manifest,
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// SetForce disables the unchanged-file skip. Manifest rows are still
// recorded so change detection works again on the next run.
func (p *Pipeline) SetForce(force bool) {
	p.force = force
}

// IngestFile partitions, embeds, and upserts one policy document. Files
// whose content hash matches the manifest are skipped.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	fileName := filepath.Base(path)
	result := &Result{FileName: fileName}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	if p.manifest != nil && !p.force {
		stored, err := p.manifest.Hash(ctx, fileName)
		if err != nil {
			return nil, err
		}
		if stored == hash {
			result.Skipped = true
			return result, nil
		}
	}

	elements, err := p.partitionFile(ctx, path, fileName, content)
	if err != nil {
		return nil, err
	}

	// Drop page chrome before chunking.
	filtered := elements[:0]
	for _, el := range elements {
		if !el.Structural() {
			filtered = append(filtered, el)
		}
	}

	section := defaultSection
	var points []vectorstore.Point

	for idx, el := range filtered {
		p.progress(idx+1, len(filtered), fileName)

		chunkText := strings.TrimSpace(el.Text)
		if chunkText == "" {
			continue
		}

		// Titles steer the running section header; they are not chunks.
		if el.Type == partition.TypeTitle {
			section = chunkText
			continue
		}

		contentType := "text"
		rawContent := chunkText
		embedText := chunkText

		if el.Type == partition.TypeTable {
			contentType = "table"
			if el.TableHTML != "" {
				rawContent = el.TableHTML
			}
			summary, err := p.summarizeTable(ctx, rawContent)
			if err != nil {
				return nil, fmt.Errorf("summarizing table in %s: %w", fileName, err)
			}
			embedText = summary
			result.LLMCalls++
		}

		emb, err := p.embedder.Embed(ctx, embedText)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %s: %w", idx, fileName, err)
		}

		points = append(points, vectorstore.Point{
			ID:            uuid.New().String(),
			Dense:         emb.Dense,
			SparseIndices: emb.SparseIndices,
			SparseValues:  emb.SparseValues,
			Payload: vectorstore.Payload{
				SourceDocument: fileName,
				PageNumber:     el.PageNumber,
				SectionHeader:  section,
				ContentType:    contentType,
				RawContent:     rawContent,
				ChunkIndex:     idx,
			},
		})
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upserting %s: %w", fileName, err)
	}
	result.Chunks = len(points)

	if p.manifest != nil {
		err := p.manifest.Record(ctx, db.Document{
			FileName:    fileName,
			ContentHash: hash,
			ChunkCount:  result.Chunks,
			LLMCalls:    result.LLMCalls,
		})
		if err != nil {
			// The vectors are already in place; a manifest failure only
			// costs change detection on the next run.
			log.Printf("ingest: recording manifest for %s: %v", fileName, err)
		}
	}

	return result, nil
}

// partitionFile picks the local Markdown partitioner or the external
// service based on the file extension.
func (p *Pipeline) partitionFile(ctx context.Context, path, fileName string, content []byte) ([]partition.Element, error) {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		elements, err := partition.Markdown(content)
		if err != nil {
			return nil, fmt.Errorf("partitioning %s: %w", fileName, err)
		}
		return elements, nil
	}

	elements, err := p.partitioner.Partition(ctx, fileName, content)
	if err != nil {
		return nil, fmt.Errorf("partitioning %s: %w", fileName, err)
	}
	return elements, nil
}

// summarizeTable asks the LLM for a dense semantic summary of a table so
// the embedding captures its rules rather than its markup.
func (p *Pipeline) summarizeTable(ctx context.Context, rawHTML string) (string, error) {
	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model:       p.model,
		Temperature: summaryTemperature,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: tableSummaryPrompt + rawHTML},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *Pipeline) progress(current, total int, message string) {
	if p.onProgress != nil {
		p.onProgress(current, total, message)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/policyrag/policyrag/internal/llm"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

const generationTemperature = 0.3

const generationSystemPrompt = `You are an expert HR Assistant for a government entity. Your job is to answer the user's query using ONLY the provided context.

Instructions:
1. Answer clearly, accurately, and professionally.
2. If the context contains conflicting information (e.g., an old policy vs. a new policy), explicitly state the conflict to the user.
3. Do not formulate citations in the main text body. The system will append citations automatically.
4. If the provided context does not contain the answer, state "I do not have enough information in the provided policies to answer that question." Do not hallucinate.`

// Engine assembles the grounded prompt and streams the generated answer.
type Engine struct {
	provider llm.Provider
	model    string
}

// NewEngine creates a generation Engine using the given provider and model.
func NewEngine(provider llm.Provider, model string) *Engine {
	return &Engine{provider: provider, model: model}
}

// Generate streams the answer for the query grounded in chunks. Tokens are
// forwarded in arrival order as soon as they arrive; after the upstream
// stream ends normally, exactly one citation block is appended. An empty
// chunk set yields a single fixed refusal. A mid-stream upstream error is
// replaced by a single error sentence; partial output already emitted is
// never retracted. The returned channel is always closed.
func (e *Engine) Generate(ctx context.Context, query string, chunks []vectorstore.Chunk) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		if len(chunks) == 0 {
			emit(ctx, out, NoContextMessage)
			return
		}

		events, err := e.provider.Stream(ctx, llm.CompletionRequest{
			Model:       e.model,
			Temperature: generationTemperature,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: generationSystemPrompt},
				{Role: llm.RoleUser, Content: buildUserPrompt(query, chunks)},
			},
		})
		if err != nil {
			log.Printf("generator: opening stream failed: %v", err)
			emit(ctx, out, StreamErrorMessage)
			return
		}

		for ev := range events {
			if ev.Err != nil {
				log.Printf("generator: stream failed mid-way: %v", ev.Err)
				emit(ctx, out, StreamErrorMessage)
				return
			}
			if ev.Content == "" {
				continue
			}
			if !emit(ctx, out, ev.Content) {
				return
			}
		}

		emit(ctx, out, FormatCitations(chunks))
	}()

	return out
}

// emit sends one token, giving up when the request context is gone.
func emit(ctx context.Context, out chan<- string, token string) bool {
	select {
	case out <- token:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildUserPrompt renders the chunks (in the evaluator's descending-score
// order) followed by the raw query.
func buildUserPrompt(query string, chunks []vectorstore.Chunk) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "[Document %d | Source: %s | Section: %s]\n%s\n\n",
			i+1, chunk.SourceDocument, chunk.SectionHeader, chunk.Content)
	}
	sb.WriteString("User Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// FormatCitations renders the trailing citation block: one line per unique
// (source document, section header) pair, first occurrence wins, insertion
// order preserved.
func FormatCitations(chunks []vectorstore.Chunk) string {
	seen := make(map[string]bool)
	var lines []string
	for _, chunk := range chunks {
		key := chunk.SourceDocument + " - " + chunk.SectionHeader
		if seen[key] {
			continue
		}
		seen[key] = true
		lines = append(lines, fmt.Sprintf("- **%s** (Section: %s, Page: %s)",
			chunk.SourceDocument, chunk.SectionHeader, chunk.PageNumber))
	}
	return "\n\n---\n**Sources:**\n" + strings.Join(lines, "\n")
}

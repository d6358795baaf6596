package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/policyrag/policyrag/internal/llm"
)

const routingTemperature = 0.1

const routingSystemPrompt = `Analyze the user query intended for an HR policy knowledge base.
Categorize it into exactly one of the following types:
- factual: Asking for a specific fact (e.g., 'How many vacation days?').
- procedural: Asking for a process or steps (e.g., 'How do I apply for leave?').
- comparative: Comparing two or more policies/concepts.
- out-of-scope: Not related to HR policies, entitlements, or workplace guidelines.

Respond with a JSON object: {"query_type": "<type>", "reasoning": "<one sentence>"}.`

// Router classifies incoming queries with the LLM's structured output.
type Router struct {
	provider llm.Provider
	model    string
}

// NewRouter creates a Router using the given provider and model.
func NewRouter(provider llm.Provider, model string) *Router {
	return &Router{provider: provider, model: model}
}

// Route classifies the query. It never fails: any error from the underlying
// call (transport, timeout, malformed output) degrades to the failsafe
// factual decision so the rest of the pipeline still executes. A misrouted
// query turns into a normal retrieval attempt instead of an aborted request.
func (r *Router) Route(ctx context.Context, q Query) RoutingResult {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model:       r.model,
		Temperature: routingTemperature,
		JSONMode:    true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: routingSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Query: %q", q.Text)},
		},
	})
	if err != nil {
		log.Printf("router: classification failed, using failsafe: %v", err)
		return failsafeResult()
	}

	decision, err := parseDecision(resp.Content)
	if err != nil {
		log.Printf("router: malformed classification %q, using failsafe: %v", resp.Content, err)
		return failsafeResult()
	}

	return RoutingResult{Decision: decision}
}

func failsafeResult() RoutingResult {
	return RoutingResult{
		Decision: RoutingDecision{
			QueryType: QueryFactual,
			Reasoning: "Failsafe fallback due to API error.",
		},
		Degraded: true,
	}
}

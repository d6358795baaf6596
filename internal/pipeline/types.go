// Package pipeline implements the query-time orchestration stages:
// routing, hybrid retrieval, re-ranking with a confidence gate, and
// grounded streamed generation.
package pipeline

import "encoding/json"

// Query is the immutable input of one request.
type Query struct {
	Text   string
	UserID string
}

// QueryType is the routing taxonomy for incoming queries.
type QueryType string

const (
	QueryFactual     QueryType = "factual"
	QueryProcedural  QueryType = "procedural"
	QueryComparative QueryType = "comparative"
	QueryOutOfScope  QueryType = "out-of-scope"
)

// Valid reports whether t is one of the four enumerated types.
func (t QueryType) Valid() bool {
	switch t {
	case QueryFactual, QueryProcedural, QueryComparative, QueryOutOfScope:
		return true
	}
	return false
}

// RoutingDecision classifies a query. Created once per request, never mutated.
type RoutingDecision struct {
	QueryType QueryType `json:"query_type"`
	Reasoning string    `json:"reasoning"`
}

// RoutingResult wraps a decision with its provenance: Degraded is true when
// classification failed and the failsafe default was substituted, so callers
// and tests can tell the two apart.
type RoutingResult struct {
	Decision RoutingDecision
	Degraded bool
}

// Fixed user-visible messages. Short-circuit messages are well-formed
// outcomes, not errors.
const (
	OutOfScopeMessage = "This question appears to be outside the scope of HR policies and workplace guidelines. I can only assist with HR-related inquiries."

	LowConfidenceMessage = "I do not have enough information in the provided policies to answer that question accurately."

	NoContextMessage = "I could not find any relevant policy documents to answer your question."

	StreamErrorMessage = "I encountered an error while generating the response. Please try again."
)

// parseDecision decodes and validates a structured classification payload.
func parseDecision(raw string) (RoutingDecision, error) {
	var d RoutingDecision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return RoutingDecision{}, err
	}
	if !d.QueryType.Valid() {
		return RoutingDecision{}, errInvalidQueryType(d.QueryType)
	}
	return d, nil
}

type errInvalidQueryType QueryType

func (e errInvalidQueryType) Error() string {
	return "invalid query_type: " + string(e)
}

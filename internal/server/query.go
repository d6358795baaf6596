package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/policyrag/policyrag/internal/eventlog"
	"github.com/policyrag/policyrag/internal/pipeline"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

// queryRequest is the POST /query body.
type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// handleQuery drives the pipeline state machine for one request:
// ROUTING -> (OUT_OF_SCOPE_EXIT | RETRIEVING) -> RERANKING ->
// (LOW_CONFIDENCE_EXIT | GENERATING) -> DONE. Exactly one audit record is
// submitted per request on the out-of-scope, low-confidence, generation,
// and client-abort paths.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}

	ctx := r.Context()
	q := pipeline.Query{Text: req.Query, UserID: req.UserID}

	rec := eventlog.Record{
		Query:           q.Text,
		UserID:          q.UserID,
		RetrievedChunks: []eventlog.ChunkRecord{},
	}

	// Stage 1: routing. Never fails; a degraded decision still proceeds.
	routing := s.router.Route(ctx, q)
	rec.QueryType = string(routing.Decision.QueryType)

	if routing.Decision.QueryType == pipeline.QueryOutOfScope {
		rec.FinalAnswer = pipeline.OutOfScopeMessage
		s.events.Submit(rec)
		s.streamFixed(w, pipeline.OutOfScopeMessage)
		return
	}

	// Stage 2: hybrid retrieval. A failure here is fatal: no context means
	// no safe answer.
	chunks, err := s.retriever.Retrieve(ctx, q.Text)
	if err != nil {
		log.Printf("query: retrieval failed: %v", err)
		writeError(w, http.StatusBadGateway, "retrieval failed")
		return
	}

	// Stage 3: re-ranking and the confidence gate.
	valid, confident, err := s.evaluator.EvaluateAndRerank(ctx, q.Text, chunks)
	if err != nil {
		log.Printf("query: re-ranking failed: %v", err)
		writeError(w, http.StatusBadGateway, "re-ranking failed")
		return
	}
	rec.RetrievedChunks = chunkRecords(valid)

	if !confident {
		rec.FinalAnswer = pipeline.LowConfidenceMessage
		s.events.Submit(rec)
		s.streamFixed(w, pipeline.LowConfidenceMessage)
		return
	}

	// Stage 4: generation. Tokens are forwarded to the client as they
	// arrive and accumulated incrementally, so a client abort mid-stream
	// still leaves a partial answer for the audit record.
	s.streamHeaders(w)
	flusher, canFlush := w.(http.Flusher)

	var answer strings.Builder
	clientGone := false
	for token := range s.generator.Generate(ctx, q.Text, valid) {
		answer.WriteString(token)
		if clientGone {
			continue
		}
		if _, err := io.WriteString(w, token); err != nil {
			// The client went away; keep draining so the record is complete.
			clientGone = true
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}

	rec.FinalAnswer = answer.String()
	s.events.Submit(rec)
}

// streamHeaders sets up the chunked streaming response.
func (s *Server) streamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

// streamFixed delivers a short-circuit message in the same response shape
// as a generated stream.
func (s *Server) streamFixed(w http.ResponseWriter, msg string) {
	s.streamHeaders(w)
	if _, err := io.WriteString(w, msg); err != nil {
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func chunkRecords(chunks []vectorstore.Chunk) []eventlog.ChunkRecord {
	records := make([]eventlog.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, eventlog.ChunkRecord{
			ID:      c.ID,
			Score:   c.Score,
			Source:  c.SourceDocument,
			Section: c.SectionHeader,
			Content: c.Content,
		})
	}
	return records
}

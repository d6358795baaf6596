package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/policyrag/policyrag/internal/eventlog"
	"github.com/policyrag/policyrag/internal/pipeline"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

type fakeRouter struct {
	result pipeline.RoutingResult
}

func (f *fakeRouter) Route(ctx context.Context, q pipeline.Query) pipeline.RoutingResult {
	return f.result
}

type fakeRetriever struct {
	chunks []vectorstore.Chunk
	err    error
	calls  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, text string) ([]vectorstore.Chunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeEvaluator struct {
	valid     []vectorstore.Chunk
	confident bool
	err       error
}

func (f *fakeEvaluator) EvaluateAndRerank(ctx context.Context, query string, chunks []vectorstore.Chunk) ([]vectorstore.Chunk, bool, error) {
	return f.valid, f.confident, f.err
}

type fakeGenerator struct {
	tokens []string
}

func (f *fakeGenerator) Generate(ctx context.Context, query string, chunks []vectorstore.Chunk) <-chan string {
	ch := make(chan string, len(f.tokens))
	for _, token := range f.tokens {
		ch <- token
	}
	close(ch)
	return ch
}

type fakeEventSink struct {
	records []eventlog.Record
}

func (f *fakeEventSink) Submit(rec eventlog.Record) {
	f.records = append(f.records, rec)
}

func routedAs(qt pipeline.QueryType) *fakeRouter {
	return &fakeRouter{result: pipeline.RoutingResult{
		Decision: pipeline.RoutingDecision{QueryType: qt, Reasoning: "test"},
	}}
}

func newTestServer(router Router, retriever Retriever, evaluator Evaluator, generator Generator, events EventSink) *Server {
	return New(Config{Port: 0}, router, retriever, evaluator, generator, events, nil)
}

func postQuery(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Mux().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(routedAs(pipeline.QueryFactual), &fakeRetriever{}, &fakeEvaluator{}, &fakeGenerator{}, &fakeEventSink{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "policyrag" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestQueryRejectsInvalidBody(t *testing.T) {
	s := newTestServer(routedAs(pipeline.QueryFactual), &fakeRetriever{}, &fakeEvaluator{}, &fakeGenerator{}, &fakeEventSink{})

	w := postQuery(t, s, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}

	w = postQuery(t, s, `{"query": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank query, got %d", w.Code)
	}
}

func TestQueryOutOfScopeShortCircuits(t *testing.T) {
	retriever := &fakeRetriever{}
	events := &fakeEventSink{}
	s := newTestServer(routedAs(pipeline.QueryOutOfScope), retriever, &fakeEvaluator{}, &fakeGenerator{}, events)

	w := postQuery(t, s, `{"query": "best pizza in town?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != pipeline.OutOfScopeMessage {
		t.Errorf("expected the out-of-scope message, got %q", got)
	}
	if retriever.calls != 0 {
		t.Errorf("retriever must not run for out-of-scope queries, got %d calls", retriever.calls)
	}
	if len(events.records) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(events.records))
	}
	rec := events.records[0]
	if rec.QueryType != "out-of-scope" {
		t.Errorf("expected query_type out-of-scope, got %q", rec.QueryType)
	}
	if rec.FinalAnswer != pipeline.OutOfScopeMessage {
		t.Errorf("audit record should carry the delivered message, got %q", rec.FinalAnswer)
	}
	if rec.UserID != "default_user" {
		t.Errorf("missing user_id should default, got %q", rec.UserID)
	}
}

func TestQueryRetrievalFailure(t *testing.T) {
	events := &fakeEventSink{}
	s := newTestServer(routedAs(pipeline.QueryFactual),
		&fakeRetriever{err: errors.New("qdrant unreachable")},
		&fakeEvaluator{}, &fakeGenerator{}, events)

	w := postQuery(t, s, `{"query": "how many vacation days?"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on retrieval failure, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if body["detail"] == "" {
		t.Error("error response should carry a detail field")
	}
	if len(events.records) != 0 {
		t.Errorf("no audit record on fatal failure, got %d", len(events.records))
	}
}

func TestQueryRerankFailure(t *testing.T) {
	s := newTestServer(routedAs(pipeline.QueryFactual),
		&fakeRetriever{chunks: []vectorstore.Chunk{{ID: "c1"}}},
		&fakeEvaluator{err: errors.New("rerank down")},
		&fakeGenerator{}, &fakeEventSink{})

	w := postQuery(t, s, `{"query": "how many vacation days?"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on rerank failure, got %d", w.Code)
	}
}

func TestQueryLowConfidenceShortCircuits(t *testing.T) {
	events := &fakeEventSink{}
	s := newTestServer(routedAs(pipeline.QueryFactual),
		&fakeRetriever{chunks: []vectorstore.Chunk{{ID: "c1"}}},
		&fakeEvaluator{valid: nil, confident: false},
		&fakeGenerator{tokens: []string{"should not appear"}}, events)

	w := postQuery(t, s, `{"query": "obscure question"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != pipeline.LowConfidenceMessage {
		t.Errorf("expected the low-confidence message, got %q", got)
	}
	if len(events.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(events.records))
	}
	if events.records[0].FinalAnswer != pipeline.LowConfidenceMessage {
		t.Errorf("audit record should carry the delivered message")
	}
}

func TestQueryStreamsGeneratedAnswer(t *testing.T) {
	score := 1.5
	valid := []vectorstore.Chunk{{
		ID:             "c1",
		Content:        "Employees get 30 days.",
		SourceDocument: "leave.pdf",
		SectionHeader:  "Annual Leave",
		PageNumber:     "4",
		Score:          &score,
	}}
	events := &fakeEventSink{}
	s := newTestServer(routedAs(pipeline.QueryFactual),
		&fakeRetriever{chunks: valid},
		&fakeEvaluator{valid: valid, confident: true},
		&fakeGenerator{tokens: []string{"30 days", " per year.", "\n\n---\n**Sources:**\n- **leave.pdf** (Section: Annual Leave, Page: 4)"}},
		events)

	w := postQuery(t, s, `{"query": "how many vacation days?", "user_id": "emp42"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected streaming content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "30 days per year.") {
		t.Errorf("unexpected answer prefix: %q", body)
	}
	if !strings.Contains(body, "**Sources:**") {
		t.Errorf("citation block missing from response: %q", body)
	}

	if len(events.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(events.records))
	}
	rec := events.records[0]
	if rec.UserID != "emp42" {
		t.Errorf("expected user_id emp42, got %q", rec.UserID)
	}
	if rec.FinalAnswer != body {
		t.Errorf("audit record should hold the full delivered answer")
	}
	if len(rec.RetrievedChunks) != 1 || rec.RetrievedChunks[0].ID != "c1" {
		t.Errorf("audit record should carry the surviving chunks, got %v", rec.RetrievedChunks)
	}
	if rec.RetrievedChunks[0].Score == nil || *rec.RetrievedChunks[0].Score != 1.5 {
		t.Errorf("chunk score missing from audit record")
	}
}

// abortingWriter fails every Write after the first, like a peer that hung
// up mid-stream.
type abortingWriter struct {
	http.ResponseWriter
	writes int
}

func (w *abortingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > 1 {
		return 0, errors.New("broken pipe")
	}
	return w.ResponseWriter.Write(p)
}

func TestQueryClientAbortStillRecordsFullAnswer(t *testing.T) {
	valid := []vectorstore.Chunk{{ID: "c1", Content: "Employees get 30 days."}}
	events := &fakeEventSink{}
	s := newTestServer(routedAs(pipeline.QueryFactual),
		&fakeRetriever{chunks: valid},
		&fakeEvaluator{valid: valid, confident: true},
		&fakeGenerator{tokens: []string{"30 days", " per year.", "\n\n---\n**Sources:**\n- **leave.pdf** (Section: Annual Leave, Page: 4)"}},
		events)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{"query": "how many vacation days?", "user_id": "emp42"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(&abortingWriter{ResponseWriter: rec}, req)

	// The client saw only the first token before the connection died.
	if got := rec.Body.String(); got != "30 days" {
		t.Errorf("expected only the first token delivered, got %q", got)
	}

	// The audit record still holds the complete drained answer.
	if len(events.records) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(events.records))
	}
	want := "30 days per year.\n\n---\n**Sources:**\n- **leave.pdf** (Section: Annual Leave, Page: 4)"
	if events.records[0].FinalAnswer != want {
		t.Errorf("audit record should hold the full answer, got %q", events.records[0].FinalAnswer)
	}
}

func TestDocumentsRouteAbsentWithoutManifest(t *testing.T) {
	s := newTestServer(routedAs(pipeline.QueryFactual), &fakeRetriever{}, &fakeEvaluator{}, &fakeGenerator{}, &fakeEventSink{})

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	s.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when the manifest is disabled, got %d", w.Code)
	}
}

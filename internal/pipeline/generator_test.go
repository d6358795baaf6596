package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/policyrag/policyrag/internal/llm"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

// fakeStreamProvider replays a fixed sequence of stream events.
type fakeStreamProvider struct {
	events  []llm.StreamEvent
	openErr error
	lastReq llm.CompletionRequest
}

func (f *fakeStreamProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStreamProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	f.lastReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan llm.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeStreamProvider) Name() string { return "fake" }

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var tokens []string
	for token := range ch {
		tokens = append(tokens, token)
	}
	return tokens
}

func TestGenerateEmptyChunksRefuses(t *testing.T) {
	engine := NewEngine(&fakeStreamProvider{}, "test-model")

	tokens := collect(t, engine.Generate(context.Background(), "q", nil))
	if len(tokens) != 1 {
		t.Fatalf("expected a single message, got %d tokens", len(tokens))
	}
	if tokens[0] != NoContextMessage {
		t.Errorf("expected the no-context message, got %q", tokens[0])
	}
}

func TestGenerateStreamsTokensThenCitations(t *testing.T) {
	provider := &fakeStreamProvider{events: []llm.StreamEvent{
		{Content: "You are "},
		{Content: "entitled to "},
		{Content: "30 days."},
	}}
	engine := NewEngine(provider, "test-model")

	chunks := []vectorstore.Chunk{
		{Content: "text", SourceDocument: "leave.pdf", SectionHeader: "Annual Leave", PageNumber: "4"},
	}

	tokens := collect(t, engine.Generate(context.Background(), "How many days?", chunks))
	if len(tokens) != 4 {
		t.Fatalf("expected 3 tokens plus 1 citation block, got %d", len(tokens))
	}
	if got := strings.Join(tokens[:3], ""); got != "You are entitled to 30 days." {
		t.Errorf("unexpected answer text: %q", got)
	}
	citation := tokens[3]
	if !strings.HasPrefix(citation, "\n\n---\n**Sources:**\n") {
		t.Errorf("citation block missing header: %q", citation)
	}
	if !strings.Contains(citation, "- **leave.pdf** (Section: Annual Leave, Page: 4)") {
		t.Errorf("citation block missing source line: %q", citation)
	}
}

func TestGeneratePromptContainsChunksAndQuery(t *testing.T) {
	provider := &fakeStreamProvider{events: []llm.StreamEvent{{Content: "ok"}}}
	engine := NewEngine(provider, "test-model")

	chunks := []vectorstore.Chunk{
		{Content: "Employees get 30 days.", SourceDocument: "leave.pdf", SectionHeader: "Annual Leave"},
	}
	collect(t, engine.Generate(context.Background(), "How many days?", chunks))

	user := provider.lastReq.Messages[1].Content
	if !strings.Contains(user, "[Document 1 | Source: leave.pdf | Section: Annual Leave]") {
		t.Errorf("prompt missing document header: %q", user)
	}
	if !strings.Contains(user, "Employees get 30 days.") {
		t.Errorf("prompt missing chunk content: %q", user)
	}
	if !strings.Contains(user, "User Query: How many days?") {
		t.Errorf("prompt missing query: %q", user)
	}
}

func TestGenerateMidStreamError(t *testing.T) {
	provider := &fakeStreamProvider{events: []llm.StreamEvent{
		{Content: "Partial "},
		{Err: errors.New("connection reset")},
	}}
	engine := NewEngine(provider, "test-model")

	chunks := []vectorstore.Chunk{{Content: "text", SourceDocument: "doc.pdf"}}

	tokens := collect(t, engine.Generate(context.Background(), "q", chunks))
	if len(tokens) != 2 {
		t.Fatalf("expected partial token plus error message, got %v", tokens)
	}
	if tokens[0] != "Partial " {
		t.Errorf("partial output should be preserved, got %q", tokens[0])
	}
	if tokens[1] != StreamErrorMessage {
		t.Errorf("expected the stream error message, got %q", tokens[1])
	}
	for _, token := range tokens {
		if strings.Contains(token, "**Sources:**") {
			t.Error("citations must not follow a failed stream")
		}
	}
}

func TestGenerateStreamOpenError(t *testing.T) {
	provider := &fakeStreamProvider{openErr: errors.New("dial failed")}
	engine := NewEngine(provider, "test-model")

	tokens := collect(t, engine.Generate(context.Background(), "q",
		[]vectorstore.Chunk{{Content: "text"}}))
	if len(tokens) != 1 || tokens[0] != StreamErrorMessage {
		t.Errorf("expected only the stream error message, got %v", tokens)
	}
}

func TestFormatCitationsDeduplicates(t *testing.T) {
	chunks := []vectorstore.Chunk{
		{SourceDocument: "leave.pdf", SectionHeader: "Annual Leave", PageNumber: "4"},
		{SourceDocument: "leave.pdf", SectionHeader: "Annual Leave", PageNumber: "7"},
		{SourceDocument: "leave.pdf", SectionHeader: "Sick Leave", PageNumber: "9"},
		{SourceDocument: "conduct.pdf", SectionHeader: "Annual Leave", PageNumber: "2"},
	}

	block := FormatCitations(chunks)
	lines := strings.Split(strings.TrimPrefix(block, "\n\n---\n**Sources:**\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 unique citations, got %d: %q", len(lines), block)
	}
	if lines[0] != "- **leave.pdf** (Section: Annual Leave, Page: 4)" {
		t.Errorf("first occurrence should win for duplicate pairs, got %q", lines[0])
	}
	if strings.Contains(block, "Page: 7") {
		t.Errorf("duplicate pair page leaked into citations: %q", block)
	}
}

func TestGenerateSkipsEmptyEvents(t *testing.T) {
	provider := &fakeStreamProvider{events: []llm.StreamEvent{
		{Content: ""},
		{Content: "answer"},
		{Content: ""},
	}}
	engine := NewEngine(provider, "test-model")

	tokens := collect(t, engine.Generate(context.Background(), "q",
		[]vectorstore.Chunk{{Content: "text", SourceDocument: "doc.pdf"}}))
	if len(tokens) != 2 {
		t.Fatalf("expected answer plus citations only, got %v", tokens)
	}
	if tokens[0] != "answer" {
		t.Errorf("expected %q, got %q", "answer", tokens[0])
	}
}

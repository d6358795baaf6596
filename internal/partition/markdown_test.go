package partition

import (
	"strings"
	"testing"
)

func TestMarkdownHeadingsBecomeTitles(t *testing.T) {
	source := []byte(`# Annual Leave

Employees are entitled to 30 days.

## Carry Over

Up to 5 days may be carried over.
`)

	elements, err := Markdown(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 4 {
		t.Fatalf("expected 4 elements, got %d: %v", len(elements), elements)
	}
	if elements[0].Type != TypeTitle || elements[0].Text != "Annual Leave" {
		t.Errorf("unexpected first element: %+v", elements[0])
	}
	if elements[1].Type != TypeText || elements[1].Text != "Employees are entitled to 30 days." {
		t.Errorf("unexpected second element: %+v", elements[1])
	}
	if elements[2].Type != TypeTitle || elements[2].Text != "Carry Over" {
		t.Errorf("unexpected third element: %+v", elements[2])
	}
}

func TestMarkdownTableKeepsHTML(t *testing.T) {
	source := []byte(`# Leave Types

| Type | Days |
|------|------|
| Annual | 30 |
| Sick | 15 |
`)

	elements, err := Markdown(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elements))
	}
	table := elements[1]
	if table.Type != TypeTable {
		t.Fatalf("expected a table element, got %s", table.Type)
	}
	if !strings.Contains(table.TableHTML, "<table>") {
		t.Errorf("expected rendered HTML, got %q", table.TableHTML)
	}
	if !strings.Contains(table.TableHTML, "Annual") {
		t.Errorf("table HTML missing cell content: %q", table.TableHTML)
	}
	if table.Text == "" {
		t.Error("table element should also carry plain text")
	}
}

func TestMarkdownSkipsThematicBreaks(t *testing.T) {
	source := []byte("Paragraph one.\n\n---\n\nParagraph two.\n")

	elements, err := Markdown(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d: %v", len(elements), elements)
	}
	for _, el := range elements {
		if el.Type != TypeText {
			t.Errorf("unexpected element type %s", el.Type)
		}
	}
}

func TestMarkdownPageNumberStaysZero(t *testing.T) {
	elements, err := Markdown([]byte("# Title\n\nBody.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, el := range elements {
		if el.PageNumber != 0 {
			t.Errorf("markdown has no pages, got page %d", el.PageNumber)
		}
	}
}

func TestStructural(t *testing.T) {
	if !(Element{Type: TypeHeader}).Structural() {
		t.Error("headers are structural")
	}
	if !(Element{Type: TypeFooter}).Structural() {
		t.Error("footers are structural")
	}
	if (Element{Type: TypeText}).Structural() {
		t.Error("text is not structural")
	}
	if (Element{Type: TypeTitle}).Structural() {
		t.Error("titles are not structural")
	}
}

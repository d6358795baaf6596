// Package partition turns policy documents into a flat element list, either
// via the external document-partitioning service or, for Markdown, locally.
package partition

// ElementType labels a partitioned document element.
type ElementType string

const (
	TypeText   ElementType = "text"
	TypeTitle  ElementType = "Title"
	TypeTable  ElementType = "Table"
	TypeHeader ElementType = "Header"
	TypeFooter ElementType = "Footer"
)

// Element is one partitioned fragment of a source document.
type Element struct {
	Type       ElementType
	Text       string
	PageNumber int
	TableHTML  string // populated for table elements only
}

// Structural reports whether the element is page chrome (headers/footers)
// that ingestion should drop.
func (e Element) Structural() bool {
	return e.Type == TypeHeader || e.Type == TypeFooter
}

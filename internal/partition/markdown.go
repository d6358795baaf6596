package partition

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown partitions a Markdown policy file locally: headings become
// Title elements, tables keep their rendered HTML, and every other
// top-level block becomes a text element. Markdown has no pages, so
// PageNumber stays zero.
func Markdown(source []byte) ([]Element, error) {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var elements []Element
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			elements = append(elements, Element{
				Type: TypeTitle,
				Text: nodeText(n, source),
			})
		case *east.Table:
			var html bytes.Buffer
			if err := markdown.Renderer().Render(&html, source, n); err != nil {
				return nil, fmt.Errorf("rendering table: %w", err)
			}
			elements = append(elements, Element{
				Type:      TypeTable,
				Text:      nodeText(n, source),
				TableHTML: html.String(),
			})
		case *ast.ThematicBreak:
			// No content.
		default:
			if txt := nodeText(node, source); txt != "" {
				elements = append(elements, Element{
					Type: TypeText,
					Text: txt,
				})
			}
		}
	}
	return elements, nil
}

// nodeText collects the plain text under a node.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

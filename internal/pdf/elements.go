package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ElementType classifies a structural element of a parsed document.
type ElementType string

const (
	ElementTitle         ElementType = "Title"
	ElementHeader        ElementType = "Header"
	ElementNarrativeText ElementType = "NarrativeText"
	ElementListItem      ElementType = "ListItem"
	ElementTable         ElementType = "Table"
	ElementText          ElementType = "Text"
	ElementFooter        ElementType = "Footer"
	ElementPageBreak     ElementType = "PageBreak"
)

// Element is one typed span of the document.
type Element struct {
	Type ElementType
	Text string
}

// ExtractElements parses markdown and flattens its AST into typed
// elements. Level-1 headings become titles, deeper headings become
// section headers, thematic breaks mark page boundaries.
func ExtractElements(markdown string) ([]Element, error) {
	md := goldmark.New()
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	var elements []Element
	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			elemType := ElementHeader
			if n.Level == 1 {
				elemType = ElementTitle
			}
			if txt := nodeText(n, source); txt != "" {
				elements = append(elements, Element{Type: elemType, Text: txt})
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			txt := nodeText(n, source)
			if txt == "" {
				return ast.WalkSkipChildren, nil
			}
			elemType := ElementNarrativeText
			if looksLikeTable(nodeRaw(n, source)) {
				elemType = ElementTable
			}
			elements = append(elements, Element{Type: elemType, Text: txt})
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			if txt := nodeText(n, source); txt != "" {
				elements = append(elements, Element{Type: ElementListItem, Text: txt})
			}
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if txt := nodeText(node, source); txt != "" {
				elements = append(elements, Element{Type: ElementText, Text: txt})
			}
			return ast.WalkSkipChildren, nil

		case *ast.ThematicBreak:
			elements = append(elements, Element{Type: ElementPageBreak})
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk markdown AST: %w", err)
	}

	return elements, nil
}

// nodeText collects the plain text under a node.
func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// nodeRaw returns the raw source lines covered by a node.
func nodeRaw(node ast.Node, source []byte) string {
	hasLines, ok := node.(interface{ Lines() *text.Segments })
	if !ok {
		return ""
	}
	lines := hasLines.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}
	start := lines.At(0).Start
	stop := lines.At(lines.Len() - 1).Stop
	return string(source[start:stop])
}

// looksLikeTable reports whether the raw text is a pipe table that
// goldmark (without the GFM extension) parsed as a paragraph.
func looksLikeTable(raw string) bool {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return false
	}
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "|") {
			return false
		}
	}
	return true
}

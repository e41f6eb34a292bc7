// ABOUTME: Renders agent markdown replies as plain terminal text using goldmark
// ABOUTME: Keeps structure (paragraphs, lists, code) and drops inline markup

// Package render converts markdown produced by the agent into text suitable
// for a terminal transcript.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// PlainText parses s as CommonMark and returns its text content with
// emphasis, link and heading markers removed. Code blocks are indented four
// spaces; links keep their destination in parentheses.
func PlainText(s string) string {
	src := []byte(s)
	doc := md.Parser().Parse(text.NewReader(src))

	w := &plainWriter{src: src}
	_ = ast.Walk(doc, w.walk)
	return strings.TrimRight(w.buf.String(), "\n ")
}

type plainWriter struct {
	src []byte
	buf bytes.Buffer
}

func (w *plainWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := n.(type) {
	case *ast.Text:
		if entering {
			w.buf.Write(n.Segment.Value(w.src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				w.buf.WriteByte('\n')
			}
		}
	case *ast.String:
		if entering {
			w.buf.Write(n.Value)
		}
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		if entering {
			w.newline()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.buf.WriteString("    ")
				w.buf.Write(seg.Value(w.src))
			}
			return ast.WalkSkipChildren, nil
		}
		w.endBlock(n)
	case *ast.AutoLink:
		if entering {
			w.buf.Write(n.URL(w.src))
			return ast.WalkSkipChildren, nil
		}
	case *ast.Link:
		if !entering {
			dest := string(n.Destination)
			if dest != "" && !bytes.HasSuffix(w.buf.Bytes(), n.Destination) {
				fmt.Fprintf(&w.buf, " (%s)", dest)
			}
		}
	case *ast.ListItem:
		if entering {
			w.newline()
			w.buf.WriteString(strings.Repeat("  ", listDepth(n)))
			w.buf.WriteString(itemMarker(n))
		} else {
			w.newline()
		}
	case *ast.ThematicBreak:
		if entering {
			w.newline()
			w.buf.WriteString("---")
		} else {
			w.endBlock(n)
		}
	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	case *ast.Paragraph, *ast.Heading, *ast.TextBlock, *ast.List, *ast.Blockquote:
		if !entering {
			w.endBlock(n)
		}
	}
	return ast.WalkContinue, nil
}

// endBlock separates top-level blocks with a blank line and nested ones
// with a newline.
func (w *plainWriter) endBlock(n ast.Node) {
	switch n.Parent().(type) {
	case *ast.Document, *ast.Blockquote:
		w.blankLine()
	default:
		w.newline()
	}
}

func (w *plainWriter) newline() {
	if w.buf.Len() > 0 && !bytes.HasSuffix(w.buf.Bytes(), []byte("\n")) {
		w.buf.WriteByte('\n')
	}
}

func (w *plainWriter) blankLine() {
	w.newline()
	if w.buf.Len() > 0 && !bytes.HasSuffix(w.buf.Bytes(), []byte("\n\n")) {
		w.buf.WriteByte('\n')
	}
}

// listDepth counts enclosing lists beyond the first
func listDepth(n ast.Node) int {
	depth := -1
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.List); ok {
			depth++
		}
	}
	return max(depth, 0)
}

func itemMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	index := list.Start
	for s := item.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		index++
	}
	return fmt.Sprintf("%d. ", index)
}

package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
// The whole file is one page.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	b := newPageBuilder()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		addMarkdownBlock(b, n, src, 0)
	}
	if b.empty() {
		return newMemorySource(), nil
	}
	return newMemorySource(b), nil
}

func addMarkdownBlock(b *pageBuilder, n ast.Node, src []byte, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		b.heading(node.Level, inlineText(node, src))
	case *ast.List:
		addMarkdownList(b, node, src, depth)
	case *extast.Table:
		b.table(markdownTable(node, src))
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		b.paragraph(blockLines(n, src))
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			addMarkdownBlock(b, c, src, depth)
		}
	case *ast.ThematicBreak, *ast.HTMLBlock:
		// No text content.
	default:
		b.paragraph(inlineText(n, src))
	}
}

func addMarkdownList(b *pageBuilder, list *ast.List, src []byte, depth int) {
	num := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []ast.Node
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.List); ok {
				nested = append(nested, c)
				continue
			}
			if t := inlineText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		itemText := strings.Join(parts, " ")
		if list.IsOrdered() {
			itemText = strconv.Itoa(num) + ". " + itemText
			num++
		}
		b.listItem(itemText, depth)
		for _, c := range nested {
			addMarkdownList(b, c.(*ast.List), src, depth+1)
		}
	}
}

func markdownTable(t *extast.Table, src []byte) [][]string {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

// inlineText collects the text of a node's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			return
		case *ast.String:
			buf.Write(t.Value)
			return
		case *ast.AutoLink:
			buf.Write(t.Label(src))
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimSpace(buf.String())
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages; blank
// lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	text := doctree.NormalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return newMemorySource(), nil
	}

	var pages []*pageBuilder
	for _, raw := range strings.Split(text, "\f") {
		b := newPageBuilder()
		for _, para := range doctree.ParagraphBlocks(raw) {
			b.paragraph(para.Text)
		}
		pages = append(pages, b)
	}
	return newMemorySource(pages...), nil
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
	"github.com/dgallion1/pdf2llm/internal/parser"
)

// LoadDocument turns an uploaded file into a Document. Files that already
// hold structured text are decoded; anything else goes through the parser
// for its extension and the processor.
func LoadDocument(ctx context.Context, proc *Processor, data []byte, filename string) (doctree.Document, Summary, error) {
	if codec.IsStructured(data) {
		doc, err := codec.Decode(string(data))
		if err != nil {
			return doctree.Document{}, Summary{}, fmt.Errorf("decode %s: %w", filename, err)
		}
		n := len(doc.Pages)
		return doc, Summary{TotalPages: n, PagesProcessed: n, Warnings: []string{}}, nil
	}

	p, err := parser.ForFile(filename)
	if err != nil {
		return doctree.Document{}, Summary{}, err
	}
	src, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return doctree.Document{}, Summary{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer src.Close()

	return proc.Process(ctx, src)
}

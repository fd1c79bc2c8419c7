// Package parser turns uploaded files into per-page raw content for the
// processing pipeline.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

var (
	// ErrSkipPage marks a page that could not be read. The pipeline records
	// it in the summary and moves on.
	ErrSkipPage = errors.New("unreadable page")

	// ErrUnsupportedFormat is returned by ForFile for unknown extensions.
	ErrUnsupportedFormat = errors.New("unsupported file extension")
)

// Parser opens a document for page-wise extraction.
type Parser interface {
	Parse(r io.Reader, filename string) (Source, error)
}

// Source yields the raw content of each page. Page may be called from
// several goroutines.
type Source interface {
	NumPages() int
	Page(ctx context.Context, i int) (RawPage, error)
	Close() error
}

// Image is an embedded raster image to be recognized.
type Image struct {
	Data   []byte
	Format string       // png, jpg, tif, ...
	BBox   doctree.BBox // Where the image is drawn on the page
}

// RawPage is one page before routing. Native is the text layer; Images are
// only populated for scanned and mixed pages.
type RawPage struct {
	Classification doctree.Classification
	Native         doctree.ExtractedContent
	Images         []Image
	Width          float64
	Height         float64
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".xlsx":
		return &XLSXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Nominal page geometry for formats without a layout. Blocks are stacked
// top to bottom so reading order is preserved.
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	lineHeight = 14.0
	margin     = 72.0
)

// pageBuilder collects blocks for one flowed page.
type pageBuilder struct {
	content doctree.ExtractedContent
	y       float64
}

func newPageBuilder() *pageBuilder {
	return &pageBuilder{y: margin}
}

func (b *pageBuilder) add(kind doctree.Kind, text string, depth int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	x := margin + float64(depth)*doctree.ListIndent
	h := lineHeight * float64(strings.Count(text, "\n")+1)
	b.content.Blocks = append(b.content.Blocks, doctree.TextBlock{
		Text: text,
		Kind: kind,
		BBox: doctree.BBox{X0: x, Y0: b.y, X1: pageWidth - margin, Y1: b.y + h},
	})
	b.y += h + lineHeight/2
}

// heading adds a heading block carrying its level as a "#" prefix.
func (b *pageBuilder) heading(level int, text string) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	level = min(max(level, 1), doctree.MaxLevel)
	b.add(doctree.KindHeading, strings.Repeat("#", level)+" "+text, 0)
}

func (b *pageBuilder) paragraph(text string) {
	b.add(doctree.KindParagraph, text, 0)
}

func (b *pageBuilder) listItem(text string, depth int) {
	b.add(doctree.KindListItem, text, depth)
}

func (b *pageBuilder) table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.content.Tables = append(b.content.Tables, doctree.NewTable(rows))
}

func (b *pageBuilder) empty() bool {
	return len(b.content.Blocks) == 0 && len(b.content.Tables) == 0
}

func (b *pageBuilder) page() RawPage {
	b.content.BodyText = doctree.BodyText(b.content.Blocks)
	return RawPage{
		Classification: doctree.NativeText,
		Native:         b.content,
		Width:          pageWidth,
		Height:         pageHeight,
	}
}

// memorySource serves pages that were fully extracted up front.
type memorySource struct {
	pages []RawPage
}

func newMemorySource(builders ...*pageBuilder) *memorySource {
	s := &memorySource{}
	for _, b := range builders {
		s.pages = append(s.pages, b.page())
	}
	return s
}

func (s *memorySource) NumPages() int { return len(s.pages) }

func (s *memorySource) Page(ctx context.Context, i int) (RawPage, error) {
	if err := ctx.Err(); err != nil {
		return RawPage{}, err
	}
	if i < 0 || i >= len(s.pages) {
		return RawPage{}, fmt.Errorf("page %d out of range [0,%d)", i, len(s.pages))
	}
	return s.pages[i], nil
}

func (s *memorySource) Close() error { return nil }

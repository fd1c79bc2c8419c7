package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// PDFParser handles PDF files. ledongthuc/pdf supplies the positioned text
// layer; pdfcpu supplies the page count, image detection and image
// extraction for OCR.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (Source, error) {
	// Both libraries want a seekable file, so spool to a temp file that
	// lives as long as the source.
	tmp, err := os.CreateTemp("", "pdf2llm-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	src := &pdfSource{path: tmp.Name(), file: tmp}
	if _, err := io.Copy(tmp, r); err != nil {
		src.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := src.open(); err != nil {
		src.Close()
		return nil, err
	}
	return src, nil
}

type pdfSource struct {
	path string
	file *os.File

	mu     sync.Mutex // ledongthuc readers are not safe for concurrent use
	reader *pdflib.Reader
	ctx    *model.Context
}

func (s *pdfSource) open() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek temp file: %w", err)
	}
	ctx, err := api.ReadValidateAndOptimize(s.file, model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("not a valid PDF: %w", err)
	}
	s.ctx = ctx

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}
	reader, err := pdflib.NewReader(s.file, info.Size())
	if err != nil {
		return fmt.Errorf("open pdf text layer: %w", err)
	}
	s.reader = reader
	return nil
}

func (s *pdfSource) NumPages() int {
	return s.ctx.PageCount
}

func (s *pdfSource) Close() error {
	if s.file == nil {
		return nil
	}
	s.file.Close()
	err := os.Remove(s.path)
	s.file = nil
	return err
}

// Page extracts page i (0-based). A page the libraries cannot read, or
// that makes them panic, is reported as ErrSkipPage.
func (s *pdfSource) Page(ctx context.Context, i int) (page RawPage, err error) {
	if err := ctx.Err(); err != nil {
		return RawPage{}, err
	}
	if i < 0 || i >= s.NumPages() {
		return RawPage{}, fmt.Errorf("page %d out of range [0,%d)", i, s.NumPages())
	}
	defer func() {
		if r := recover(); r != nil {
			page, err = RawPage{}, fmt.Errorf("%w: %v", ErrSkipPage, r)
		}
	}()

	pageNr := i + 1
	glyphs, width, height, err := s.textLayer(pageNr)
	if err != nil {
		return RawPage{}, err
	}
	native := LayoutPage(glyphs, height)
	hasImages := len(s.imageObjNrs(pageNr)) > 0

	page = RawPage{
		Classification: Classify(TextCoverage(native, width, height), hasImages),
		Native:         native,
		Width:          width,
		Height:         height,
	}
	if page.Classification != doctree.NativeText {
		page.Images, err = s.images(pageNr, width, height)
		if err != nil {
			return RawPage{}, err
		}
	}
	return page, nil
}

func (s *pdfSource) textLayer(pageNr int) ([]Glyph, float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.reader.Page(pageNr)
	if p.V.IsNull() {
		return nil, 0, 0, fmt.Errorf("%w: page object missing", ErrSkipPage)
	}
	width, height := mediaBox(p.V)
	content := p.Content()

	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{
			Text:     t.S,
			X:        t.X,
			Y:        height - t.Y - t.FontSize,
			W:        t.W,
			FontSize: t.FontSize,
			Bold:     strings.Contains(strings.ToLower(t.Font), "bold"),
		})
	}
	return glyphs, width, height, nil
}

func (s *pdfSource) imageObjNrs(pageNr int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pdfcpu.ImageObjNrs(s.ctx, pageNr)
}

func (s *pdfSource) placements(pageNr int, width, height float64) map[string]doctree.BBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imagePlacements(s.reader.Page(pageNr), width, height)
}

// images extracts the page's raster images, each placed where the content
// stream draws it. An image whose placement is unknown is assumed to cover
// the page.
func (s *pdfSource) images(pageNr int, width, height float64) ([]Image, error) {
	placed := s.placements(pageNr, width, height)

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("reopen pdf: %w", err)
	}
	defer f.Close()

	pages, err := api.ExtractImagesRaw(f, []string{strconv.Itoa(pageNr)}, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: extract images: %v", ErrSkipPage, err)
	}

	var out []Image
	for _, imgs := range pages {
		for _, img := range imgs {
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("%w: read image %s: %v", ErrSkipPage, img.Name, err)
			}
			box, ok := placed[img.Name]
			if !ok {
				box = doctree.BBox{X1: width, Y1: height}
			}
			out = append(out, Image{
				Data:   data,
				Format: img.FileType,
				BBox:   box,
			})
		}
	}
	return out, nil
}

// mediaBox reads the page size, following inherited attributes up the page
// tree. US Letter is assumed when no box is found.
func mediaBox(v pdflib.Value) (float64, float64) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return pageWidth, pageHeight
}

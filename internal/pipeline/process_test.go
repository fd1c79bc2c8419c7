package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/pdf2llm/internal/doctree"
	"github.com/dgallion1/pdf2llm/internal/ocr"
	"github.com/dgallion1/pdf2llm/internal/parser"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	pages []parser.RawPage
	errs  map[int]error
}

func (s *fakeSource) NumPages() int { return len(s.pages) }

func (s *fakeSource) Page(ctx context.Context, i int) (parser.RawPage, error) {
	if err := ctx.Err(); err != nil {
		return parser.RawPage{}, err
	}
	if err := s.errs[i]; err != nil {
		return parser.RawPage{}, err
	}
	return s.pages[i], nil
}

func (s *fakeSource) Close() error { return nil }

type fakeRecognizer struct {
	res   ocr.Result
	err   error
	calls atomic.Int32
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte) (ocr.Result, error) {
	f.calls.Add(1)
	return f.res, f.err
}

func block(kind doctree.Kind, text string, y float64) doctree.TextBlock {
	return doctree.TextBlock{Text: text, Kind: kind, BBox: doctree.BBox{X0: 72, Y0: y, X1: 540, Y1: y + 14}}
}

func nativePage(blocks ...doctree.TextBlock) parser.RawPage {
	return parser.RawPage{
		Classification: doctree.NativeText,
		Native:         doctree.ExtractedContent{Blocks: blocks, BodyText: doctree.BodyText(blocks)},
		Width:          612,
		Height:         792,
	}
}

func scannedPage() parser.RawPage {
	return parser.RawPage{
		Classification: doctree.Scanned,
		Images:         []parser.Image{{Data: []byte("img"), Format: "png", BBox: doctree.BBox{X1: 612, Y1: 792}}},
		Width:          612,
		Height:         792,
	}
}

func TestProcess_OrdersPagesAndBuildsSections(t *testing.T) {
	src := &fakeSource{pages: []parser.RawPage{
		nativePage(block(doctree.KindHeading, "# Intro", 72), block(doctree.KindParagraph, "Hello.", 100)),
		nativePage(block(doctree.KindParagraph, "More.", 72)),
		nativePage(block(doctree.KindHeading, "## Details", 72), block(doctree.KindParagraph, "Deep.", 100)),
		nativePage(block(doctree.KindParagraph, "Tail.", 72)),
	}}

	var started, finished atomic.Int32
	proc := NewProcessor(Options{
		ChunkSize: 1,
		Workers:   3,
		OnStart:   func(n int) { started.Store(int32(n)) },
		OnPage:    func() { finished.Add(1) },
	}, nil, discardLogger())

	doc, summary, err := proc.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalPages != 4 || summary.PagesProcessed != 4 || summary.PagesSkipped != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if started.Load() != 4 || finished.Load() != 4 {
		t.Errorf("expected callbacks for 4 pages, got start=%d pages=%d", started.Load(), finished.Load())
	}
	for i, p := range doc.Pages {
		if p.PageNumber != i {
			t.Errorf("expected page %d in position %d, got %d", i, i, p.PageNumber)
		}
	}
	if doc.Pages[1].Content.BodyText != "More." {
		t.Errorf("expected lead text on page 1, got %q", doc.Pages[1].Content.BodyText)
	}

	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(doc.Sections))
	}
	intro := doc.Sections[0]
	if intro.Title != "Intro" || intro.Level != 1 || intro.PageStart != 0 || intro.PageEnd != 3 {
		t.Errorf("unexpected intro section %+v", intro)
	}
	if intro.Content != "Hello." {
		t.Errorf("expected intro content %q, got %q", "Hello.", intro.Content)
	}
	if len(intro.Subsections) != 1 {
		t.Fatalf("expected 1 subsection, got %d", len(intro.Subsections))
	}
	details := intro.Subsections[0]
	if details.Title != "Details" || details.Level != 2 || details.PageStart != 2 || details.PageEnd != 3 {
		t.Errorf("unexpected details section %+v", details)
	}
}

func TestProcess_SkipsUnreadablePages(t *testing.T) {
	src := &fakeSource{
		pages: []parser.RawPage{
			nativePage(block(doctree.KindParagraph, "One.", 72)),
			{},
			nativePage(block(doctree.KindParagraph, "Three.", 72)),
		},
		errs: map[int]error{1: parser.ErrSkipPage},
	}
	proc := NewProcessor(Options{ChunkSize: 2, Workers: 2}, nil, discardLogger())

	doc, summary, err := proc.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PagesSkipped != 1 || summary.PagesProcessed != 2 {
		t.Errorf("expected 2 processed and 1 skipped, got %+v", summary)
	}
	if len(summary.Warnings) != 1 || !strings.HasPrefix(summary.Warnings[0], "Corrupted/unreadable page 2") {
		t.Errorf("unexpected warnings %q", summary.Warnings)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if doc.Pages[1].PageNumber != 1 || doc.Pages[1].Content.BodyText != "Three." {
		t.Errorf("expected renumbered page 1 with %q, got %+v", "Three.", doc.Pages[1])
	}
}

func TestProcess_ScannedPageUsesOCR(t *testing.T) {
	rec := &fakeRecognizer{res: ocr.Result{
		Width: 100, Height: 100, Confidence: 0.55,
		Lines: []ocr.Line{{Text: "Scanned words", Confidence: 0.55}},
	}}
	rec.res.Lines[0].Box.Max.X, rec.res.Lines[0].Box.Max.Y = 50, 10

	proc := NewProcessor(Options{ChunkSize: 10, Workers: 1, OCRThreshold: 0.7}, rec, discardLogger())
	doc, summary, err := proc.Process(context.Background(), &fakeSource{pages: []parser.RawPage{scannedPage()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.calls.Load() != 1 {
		t.Errorf("expected 1 OCR call, got %d", rec.calls.Load())
	}
	page := doc.Pages[0]
	if page.OCRConfidence == nil || *page.OCRConfidence != 0.55 {
		t.Errorf("expected OCR confidence 0.55, got %v", page.OCRConfidence)
	}
	if page.Content.BodyText != "Scanned words" {
		t.Errorf("expected OCR text, got %q", page.Content.BodyText)
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0] != "Low OCR confidence on page 1: 0.55" {
		t.Errorf("unexpected warnings %q", summary.Warnings)
	}
}

func TestProcess_WithoutOCRFallsBackToTextLayer(t *testing.T) {
	raw := scannedPage()
	raw.Classification = doctree.Mixed
	raw.Native = doctree.ExtractedContent{BodyText: "Layer.", Blocks: []doctree.TextBlock{block(doctree.KindParagraph, "Layer.", 72)}}

	proc := NewProcessor(Options{ChunkSize: 10}, nil, discardLogger())
	doc, summary, err := proc.Process(context.Background(), &fakeSource{pages: []parser.RawPage{raw}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Pages[0].Content.BodyText != "Layer." {
		t.Errorf("expected text layer, got %q", doc.Pages[0].Content.BodyText)
	}
	if doc.Pages[0].OCRConfidence != nil {
		t.Error("expected no OCR confidence")
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "OCR unavailable for page 1") {
		t.Errorf("unexpected warnings %q", summary.Warnings)
	}
}

func TestProcess_OCRFailureSkipsPage(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("engine crashed")}
	proc := NewProcessor(Options{ChunkSize: 10}, rec, discardLogger())
	doc, summary, err := proc.Process(context.Background(), &fakeSource{pages: []parser.RawPage{
		scannedPage(),
		nativePage(block(doctree.KindParagraph, "Fine.", 72)),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PagesSkipped != 1 || len(doc.Pages) != 1 {
		t.Errorf("expected the scanned page to be skipped, got %+v", summary)
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proc := NewProcessor(Options{ChunkSize: 1, Workers: 2}, nil, discardLogger())
	_, _, err := proc.Process(ctx, &fakeSource{pages: []parser.RawPage{nativePage(), nativePage()}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProcess_EmptySource(t *testing.T) {
	proc := NewProcessor(Options{}, nil, discardLogger())
	doc, summary, err := proc.Process(context.Background(), &fakeSource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Empty() {
		t.Errorf("expected empty document, got %+v", doc)
	}
	if summary.TotalPages != 0 || summary.Warnings == nil {
		t.Errorf("unexpected summary %+v", summary)
	}
}

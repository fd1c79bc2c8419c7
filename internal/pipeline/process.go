package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pdf2llm/internal/chunker"
	"github.com/dgallion1/pdf2llm/internal/doctree"
	"github.com/dgallion1/pdf2llm/internal/merge"
	"github.com/dgallion1/pdf2llm/internal/ocr"
	"github.com/dgallion1/pdf2llm/internal/parser"
)

// Options control page processing.
type Options struct {
	ChunkSize    int     // Pages per batch
	Workers      int     // Batches processed in parallel
	OCRThreshold float64 // Confidence below this produces a warning

	// OnStart, if set, is called with the page count before extraction.
	OnStart func(totalPages int)

	// OnPage, if set, is called once per page as it finishes, whether it
	// was kept or skipped. It may be called from several goroutines.
	OnPage func()
}

// Summary describes one processing run.
type Summary struct {
	TotalPages     int           `json:"total_pages"`
	PagesProcessed int           `json:"pages_processed"`
	PagesSkipped   int           `json:"pages_skipped"`
	Warnings       []string      `json:"warnings"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"duration_ms"`
}

// Processor turns a page source into a Document.
type Processor struct {
	opts Options
	ocr  ocr.Recognizer // nil when OCR is unavailable
	log  *slog.Logger
}

// NewProcessor creates a processor. rec may be nil, in which case scanned
// and mixed pages fall back to their text layer.
func NewProcessor(opts Options, rec ocr.Recognizer, log *slog.Logger) *Processor {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Processor{opts: opts, ocr: rec, log: log}
}

// pageOutcome is the result of one source page before renumbering.
type pageOutcome struct {
	index    int
	page     doctree.PageContent
	warnings []string
	skipErr  error
}

type rangeResult struct {
	idx      int
	outcomes []pageOutcome
	err      error
}

// Process extracts every page of src. Page ranges are handled in parallel;
// results are put back in page order, unreadable pages are dropped and the
// remaining pages renumbered without gaps before the section tree is built.
func (p *Processor) Process(ctx context.Context, src parser.Source) (doctree.Document, Summary, error) {
	start := time.Now()
	total := src.NumPages()
	summary := Summary{TotalPages: total, Warnings: []string{}}
	if p.opts.OnStart != nil {
		p.opts.OnStart(total)
	}

	ranges, err := chunker.PageRanges(total, p.opts.ChunkSize)
	if err != nil {
		return doctree.Document{}, summary, err
	}

	results := make(chan rangeResult, len(ranges))
	sem := make(chan struct{}, p.opts.Workers)
	for i, r := range ranges {
		sem <- struct{}{}
		go func(i int, r chunker.PageRange) {
			defer func() { <-sem }()
			outcomes, err := p.processRange(ctx, src, r)
			results <- rangeResult{idx: i, outcomes: outcomes, err: err}
		}(i, r)
	}

	ordered := make([][]pageOutcome, len(ranges))
	var firstErr error
	for range ranges {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		ordered[res.idx] = res.outcomes
	}
	if firstErr != nil {
		return doctree.Document{}, summary, firstErr
	}

	var pages []doctree.PageContent
	for _, outcomes := range ordered {
		for _, o := range outcomes {
			if o.skipErr != nil {
				msg := fmt.Sprintf("Corrupted/unreadable page %d: %v", o.index+1, o.skipErr)
				p.log.Warn(msg)
				summary.Warnings = append(summary.Warnings, msg)
				summary.PagesSkipped++
				continue
			}
			for _, w := range o.warnings {
				p.log.Warn(w)
			}
			summary.Warnings = append(summary.Warnings, o.warnings...)
			o.page.PageNumber = len(pages)
			pages = append(pages, o.page)
		}
	}
	summary.PagesProcessed = len(pages)
	summary.Duration = time.Since(start)
	summary.DurationMs = summary.Duration.Milliseconds()

	if len(summary.Warnings) > 0 {
		p.log.Warn("processing completed with warnings", "warnings", len(summary.Warnings))
	}
	return Assemble(pages), summary, nil
}

func (p *Processor) processRange(ctx context.Context, src parser.Source, r chunker.PageRange) ([]pageOutcome, error) {
	out := make([]pageOutcome, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := pageOutcome{index: i}
		raw, err := src.Page(ctx, i)
		if err == nil {
			o.page, o.warnings, err = p.route(ctx, i, raw)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			o.skipErr = err
		}
		out = append(out, o)
		if p.opts.OnPage != nil {
			p.opts.OnPage()
		}
	}
	return out, nil
}

// route picks the extractor(s) for a page by its classification.
func (p *Processor) route(ctx context.Context, i int, raw parser.RawPage) (doctree.PageContent, []string, error) {
	page := doctree.PageContent{Classification: raw.Classification, Content: raw.Native}
	log := p.log.With("page", i+1, "classification", raw.Classification)

	if raw.Classification == doctree.NativeText {
		log.Debug("page extracted", "method", "text_extractor")
		return page, nil, nil
	}

	ocrContent, conf, err := p.recognize(ctx, raw)
	if errors.Is(err, ocr.ErrOCRNotEnabled) || (err == nil && len(raw.Images) == 0) {
		log.Debug("page extracted", "method", "text_extractor", "ocr", "unavailable")
		return page, []string{fmt.Sprintf("OCR unavailable for page %d; using text layer only", i+1)}, nil
	}
	if err != nil {
		return doctree.PageContent{}, nil, err
	}

	var warnings []string
	page.OCRConfidence = &conf
	if conf < p.opts.OCRThreshold {
		warnings = append(warnings, fmt.Sprintf("Low OCR confidence on page %d: %.2f", i+1, conf))
	}
	if raw.Classification == doctree.Scanned {
		ocrContent.Blocks = merge.ReadingOrder(ocrContent.Blocks)
		ocrContent.BodyText = doctree.BodyText(ocrContent.Blocks)
		page.Content = ocrContent
		log.Debug("page extracted", "method", "ocr_engine", "confidence", conf)
	} else {
		page.Content = merge.Merge(raw.Native, ocrContent)
		log.Debug("page extracted", "method", "text_extractor+ocr_engine", "confidence", conf)
	}
	return page, warnings, nil
}

// recognize runs OCR over the page images and returns their combined
// content with the mean confidence.
func (p *Processor) recognize(ctx context.Context, raw parser.RawPage) (doctree.ExtractedContent, float64, error) {
	if p.ocr == nil {
		return doctree.ExtractedContent{}, 0, ocr.ErrOCRNotEnabled
	}
	var out doctree.ExtractedContent
	var sum float64
	for _, img := range raw.Images {
		res, err := p.ocr.Recognize(ctx, img.Data)
		if err != nil {
			return doctree.ExtractedContent{}, 0, fmt.Errorf("ocr %s image: %w", img.Format, err)
		}
		c := ocr.ToContent(res, img.BBox)
		out.Blocks = append(out.Blocks, c.Blocks...)
		sum += res.Confidence
	}
	if len(raw.Images) == 0 {
		return out, 0, nil
	}
	out.BodyText = doctree.BodyText(out.Blocks)
	return out, sum / float64(len(raw.Images)), nil
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/config"
	"github.com/dgallion1/pdf2llm/internal/doctree"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/ocr"
	"github.com/dgallion1/pdf2llm/internal/qa"
)

// Content types of job results.
const (
	ContentTypeStructured = "text/markdown; charset=utf-8"
	ContentTypeJSON       = "application/json"
)

// Worker processes a single job.
type Worker struct {
	cfg config.Config
	ocr ocr.Recognizer
	emb embed.Embedder
	log *slog.Logger
}

func NewWorker(cfg config.Config, rec ocr.Recognizer, emb embed.Embedder, log *slog.Logger) *Worker {
	return &Worker{cfg: cfg, ocr: rec, emb: emb, log: log}
}

// Process runs a job to completion and records its result or failure.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind, "filename", job.Filename)
	switch job.Kind {
	case KindConvert:
		w.convert(ctx, job, log)
	case KindCompare:
		w.compare(ctx, job, log)
	default:
		job.Fail("queued", fmt.Errorf("unknown job kind %q", job.Kind))
	}
}

func (w *Worker) convert(ctx context.Context, job *Job, log *slog.Logger) {
	inputs := job.Inputs()
	if len(inputs) != 1 {
		job.Fail("parsing", fmt.Errorf("convert expects one file, got %d", len(inputs)))
		return
	}

	doc, ok := w.load(ctx, job, inputs[0], log)
	if !ok {
		return
	}

	job.SetStatus(StatusEncoding, "encoding")
	text, err := codec.Encode(doc)
	if err != nil {
		log.Error("encode failed", "error", err)
		job.Fail("encoding", err)
		return
	}
	job.Finish(Result{ContentType: ContentTypeStructured, Body: []byte(text)})
	log.Info("conversion complete", "sections", doctree.CountSections(doc.Sections), "bytes", len(text))
}

func (w *Worker) compare(ctx context.Context, job *Job, log *slog.Logger) {
	inputs := job.Inputs()
	if len(inputs) != 2 {
		job.Fail("parsing", fmt.Errorf("compare expects two files, got %d", len(inputs)))
		return
	}

	questions, ok := w.load(ctx, job, inputs[0], log)
	if !ok {
		return
	}
	answers, ok := w.load(ctx, job, inputs[1], log)
	if !ok {
		return
	}

	job.SetStatus(StatusMatching, "matching")
	report, err := qa.Compare(ctx, questions, answers, EmbeddingScorer(w.emb, w.cfg.WindowConfig()), w.cfg.RankOptions())
	if err != nil {
		log.Error("comparison failed", "error", err)
		job.Fail("matching", err)
		return
	}
	report.QuestionsSource = inputs[0].Filename
	report.AnswersSource = inputs[1].Filename

	var buf bytes.Buffer
	if err := qa.WriteJSON(&buf, report); err != nil {
		job.Fail("matching", err)
		return
	}
	job.Finish(Result{ContentType: ContentTypeJSON, Body: buf.Bytes()})
	log.Info("comparison complete", "questions", len(report.Questions), "matched", report.Matched())
}

// load parses and processes one input, recording progress on the job.
func (w *Worker) load(ctx context.Context, job *Job, in Input, log *slog.Logger) (doctree.Document, bool) {
	job.SetStatus(StatusParsing, "parsing "+in.Filename)
	proc := NewProcessor(Options{
		ChunkSize:    w.cfg.ChunkSize,
		Workers:      w.cfg.PageWorkers,
		OCRThreshold: w.cfg.OCRThreshold,
		OnStart: func(total int) {
			job.AddTotalPages(total)
			job.SetStatus(StatusProcessing, "processing "+in.Filename)
		},
		OnPage: job.IncrPagesProcessed,
	}, w.ocr, log)

	doc, summary, err := LoadDocument(ctx, proc, in.Data, in.Filename)
	if err != nil {
		log.Error("load failed", "file", in.Filename, "error", err)
		job.Fail("parsing", err)
		return doctree.Document{}, false
	}
	job.AddSummary(summary)
	log.Info("document loaded",
		"file", in.Filename,
		"pages", summary.PagesProcessed,
		"skipped", summary.PagesSkipped,
		"duration_ms", summary.DurationMs,
	)
	return doc, true
}

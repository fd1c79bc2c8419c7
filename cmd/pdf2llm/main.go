package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdf2llm/internal/config"
	"github.com/dgallion1/pdf2llm/internal/ocr"
	"github.com/dgallion1/pdf2llm/internal/pipeline"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	verbose bool

	chunkSize     int
	ocrThreshold  float64
	topN          int
	minSimilarity float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pdf2llm",
		Short:         "Convert documents to LLM-ready structured text and match questions to answers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.IntVar(&a.chunkSize, "chunk-size", 50, "pages per extraction batch")
	pf.Float64Var(&a.ocrThreshold, "ocr-threshold", 0.7, "warn when OCR confidence is below this")
	pf.IntVar(&a.topN, "top-n", 3, "matches kept per question")
	pf.Float64Var(&a.minSimilarity, "min-similarity", 0.5, "discard matches scoring below this")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(convertCmd(a), compareCmd(a), checkCmd(a))
	return root
}

// setup loads the configuration, applies explicitly set flags on top of it
// and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = a.chunkSize
	}
	if flags.Changed("ocr-threshold") {
		cfg.OCRThreshold = a.ocrThreshold
	}
	if flags.Changed("top-n") {
		cfg.TopN = a.topN
	}
	if flags.Changed("min-similarity") {
		cfg.MinSimilarity = a.minSimilarity
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// processor builds a page processor with OCR when it is compiled in. The
// returned function releases the OCR engine.
func (a *app) processor() (*pipeline.Processor, func()) {
	var rec ocr.Recognizer
	engine, err := ocr.New(ocr.Options{Language: a.cfg.OCRLanguage})
	if err != nil {
		a.log.Debug("ocr unavailable", "error", err)
	} else {
		rec = engine
	}
	proc := pipeline.NewProcessor(pipeline.Options{
		ChunkSize:    a.cfg.ChunkSize,
		Workers:      a.cfg.PageWorkers,
		OCRThreshold: a.cfg.OCRThreshold,
	}, rec, a.log)
	return proc, func() { engine.Close() }
}

// printSummary writes the processing summary of one input.
func printSummary(w io.Writer, name string, s pipeline.Summary) {
	fmt.Fprintf(w, "%s: %d/%d pages processed, %d skipped, %d warnings (%dms)\n",
		name, s.PagesProcessed, s.TotalPages, s.PagesSkipped, len(s.Warnings), s.DurationMs)
	for _, warn := range s.Warnings {
		fmt.Fprintln(w, "  warning: "+strings.TrimSpace(warn))
	}
}

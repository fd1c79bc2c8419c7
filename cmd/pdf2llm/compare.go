package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdf2llm/internal/doctree"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/pipeline"
	"github.com/dgallion1/pdf2llm/internal/qa"
)

func compareCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "compare <questions> <answers>",
		Short: "Match the questions of one document to the sections of another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q: use text or json", format)
			}
			ctx := cmd.Context()

			proc, release := a.processor()
			defer release()
			docs := make([]doctree.Document, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				doc, summary, err := pipeline.LoadDocument(ctx, proc, data, filepath.Base(path))
				if err != nil {
					return err
				}
				printSummary(cmd.ErrOrStderr(), path, summary)
				docs[i] = doc
			}

			embedCfg := a.cfg.EmbedConfig()
			embedCfg.Logger = a.log
			emb, closeEmb, err := embed.New(ctx, embedCfg)
			if err != nil {
				return err
			}
			defer closeEmb()

			report, err := qa.Compare(ctx, docs[0], docs[1], pipeline.EmbeddingScorer(emb, a.cfg.WindowConfig()), a.cfg.RankOptions())
			if err != nil {
				return err
			}
			report.QuestionsSource = args[0]
			report.AnswersSource = args[1]

			if format == "json" {
				return qa.WriteJSON(cmd.OutOrStdout(), report)
			}
			return qa.WriteText(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "report format: text|json")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/pipeline"
)

func convertCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a document to structured text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			proc, release := a.processor()
			defer release()
			doc, summary, err := pipeline.LoadDocument(cmd.Context(), proc, data, filepath.Base(path))
			if err != nil {
				return err
			}
			printSummary(cmd.ErrOrStderr(), path, summary)

			text, err := codec.Encode(doc)
			if err != nil {
				return fmt.Errorf("encode %s: %w", path, err)
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return err
			}
			a.log.Info("wrote structured text", "path", out, "bytes", len(text))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

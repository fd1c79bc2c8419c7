package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdf2llm/internal/codec"
	"github.com/dgallion1/pdf2llm/internal/doctree"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Decode a structured text file and print its outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := codec.Decode(string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.log.Debug("decoded", "path", args[0], "pages", len(doc.Pages))
			return writeOutline(cmd.OutOrStdout(), doc)
		},
	}
}

// writeOutline prints one line per section, indented by depth, with its
// 1-based page range.
func writeOutline(w io.Writer, doc doctree.Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d pages, %d sections\n", len(doc.Pages), doctree.CountSections(doc.Sections))
	doctree.Walk(doc.Sections, func(s *doctree.Section, depth int) bool {
		fmt.Fprintf(&b, "%s%s (p. %d-%d)\n", strings.Repeat("  ", depth), s.Title, s.PageStart+1, s.PageEnd+1)
		return true
	})
	_, err := io.WriteString(w, b.String())
	return err
}

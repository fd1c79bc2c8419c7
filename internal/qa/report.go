package qa

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

const (
	reportRule    = "============================================================"
	reportPreview = 200
)

// WriteText renders the report for people: one block per question with
// its ranked matches and a totals footer. Page numbers are 1-based.
func WriteText(w io.Writer, r doctree.QAReport) error {
	var b strings.Builder
	b.WriteString("Q&A Match Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt)
	fmt.Fprintf(&b, "Questions source: %s\n", r.QuestionsSource)
	fmt.Fprintf(&b, "Answers source:   %s\n", r.AnswersSource)
	b.WriteString(reportRule + "\n")

	for i, q := range r.Questions {
		fmt.Fprintf(&b, "\nQuestion %d: %s\n", i+1, preview(q.Question))
		if q.IsUnmatched {
			b.WriteString("  Status: UNMATCHED (no answer above similarity threshold)\n")
			continue
		}
		for j, m := range q.Matches {
			fmt.Fprintf(&b, "  Match %d: [%s] (pages %d-%d, similarity: %.3f)\n",
				j+1, m.SectionTitle, m.PageRange[0]+1, m.PageRange[1]+1, m.SimilarityScore)
			fmt.Fprintf(&b, "    Excerpt: %s...\n", preview(m.TextExcerpt))
		}
	}

	b.WriteString("\n" + reportRule + "\n")
	fmt.Fprintf(&b, "Total questions: %d\n", len(r.Questions))
	matched := r.Matched()
	fmt.Fprintf(&b, "Matched: %d, Unmatched: %d\n", matched, len(r.Questions)-matched)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r doctree.QAReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// preview flattens s to one line of at most reportPreview runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > reportPreview {
		return string(r[:reportPreview])
	}
	return s
}

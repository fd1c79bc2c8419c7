package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

func bodyPage(n int, body string) doctree.PageContent {
	return doctree.PageContent{
		PageNumber:     n,
		Classification: doctree.NativeText,
		Content:        doctree.ExtractedContent{BodyText: body},
	}
}

func answersDoc() doctree.Document {
	return doctree.Document{
		Pages: []doctree.PageContent{
			bodyPage(0, "lead zero"),
			bodyPage(1, "lead one"),
			bodyPage(2, "lead two"),
		},
		Sections: []doctree.Section{
			{Title: "Intro", Level: 1, PageStart: 0, PageEnd: 1, Content: "intro text"},
			{Title: "Claims", Level: 1, PageStart: 1, PageEnd: 2, Content: "claims overview",
				Subsections: []doctree.Section{
					{Title: "Filing", Level: 2, PageStart: 1, PageEnd: 2, Content: "filing text"},
				}},
		},
	}
}

func TestPassages_LeafSectionsWithContinuationText(t *testing.T) {
	got := Passages(answersDoc())
	if len(got) != 2 {
		t.Fatalf("expected 2 leaf passages, got %+v", got)
	}
	want := []Passage{
		{Title: "Intro", PageStart: 0, PageEnd: 1, Text: "intro text\n\nlead one"},
		{Title: "Filing", PageStart: 1, PageEnd: 2, Text: "filing text\n\nlead two"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("passage %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestPassages_FallsBackToPages(t *testing.T) {
	table := doctree.NewTable([][]string{{"k", "v"}})
	p2 := bodyPage(2, "")
	p2.Content.Tables = []doctree.Table{table}
	doc := doctree.Document{Pages: []doctree.PageContent{bodyPage(0, "first"), bodyPage(1, "  "), p2}}

	got := Passages(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 page passages, got %+v", got)
	}
	if got[0].Title != "Page 1" || got[0].Text != "first" {
		t.Errorf("unexpected first passage %+v", got[0])
	}
	if got[1].Title != "Page 3" || got[1].PageStart != 2 || !strings.Contains(got[1].Text, "| k | v |") {
		t.Errorf("unexpected table passage %+v", got[1])
	}
}

func TestQuestions_OnePerPage(t *testing.T) {
	got := Questions(answersDoc())
	want := []string{
		"lead zero\n\nIntro\n\nintro text",
		"lead one\n\nClaims\n\nclaims overview\n\nFiling\n\nfiling text",
		"lead two",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d questions, got %q", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("question %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCompare_BuildsReport(t *testing.T) {
	questions := doctree.Document{Pages: []doctree.PageContent{
		bodyPage(0, "How do I file?"),
		bodyPage(1, "Who is covered?"),
	}}
	factory := func(_ context.Context, qs []string, ps []Passage) (Scorer, error) {
		if len(qs) != 2 || len(ps) != 2 {
			t.Errorf("expected 2 questions and 2 passages, got %d and %d", len(qs), len(ps))
		}
		return matrix([][]float64{{0.1, 0.8}, {0.2, 0.3}}), nil
	}

	report, err := Compare(context.Background(), questions, answersDoc(), factory, DefaultOptions())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(report.Questions))
	}
	if report.Questions[0].Matches[0].SectionTitle != "Filing" {
		t.Errorf("expected Filing as best match, got %+v", report.Questions[0].Matches)
	}
	if !report.Questions[1].IsUnmatched {
		t.Error("expected second question unmatched")
	}
	if report.Matched() != 1 {
		t.Errorf("expected 1 matched question, got %d", report.Matched())
	}
	if report.GeneratedAt == "" {
		t.Error("expected a generation timestamp")
	}
}

func TestCompare_EmptyInputs(t *testing.T) {
	factory := func(context.Context, []string, []Passage) (Scorer, error) {
		t.Error("factory should not be called")
		return nil, nil
	}
	_, err := Compare(context.Background(), doctree.Document{}, answersDoc(), factory, DefaultOptions())
	if !errors.Is(err, ErrNoQuestions) {
		t.Errorf("expected ErrNoQuestions, got %v", err)
	}
	_, err = Compare(context.Background(), answersDoc(), doctree.Document{}, factory, DefaultOptions())
	if !errors.Is(err, ErrNoPassages) {
		t.Errorf("expected ErrNoPassages, got %v", err)
	}
}

func TestWriteText(t *testing.T) {
	report := doctree.QAReport{
		QuestionsSource: "q.pdf",
		AnswersSource:   "a.pdf",
		GeneratedAt:     "2026-01-02T03:04:05Z",
		Questions: []doctree.QAMatch{
			{Question: "How do I\nfile a claim?", Matches: []doctree.MatchResult{{
				SectionTitle: "Claims", PageRange: [2]int{3, 5}, SimilarityScore: 0.93, TextExcerpt: "Call\nus.",
			}}},
			{Question: "Unrelated?", IsUnmatched: true},
		},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, report); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Q&A Match Report\nGenerated: 2026-01-02T03:04:05Z\n",
		"Questions source: q.pdf\nAnswers source:   a.pdf\n",
		"\nQuestion 1: How do I file a claim?\n",
		"  Match 1: [Claims] (pages 4-6, similarity: 0.930)\n",
		"    Excerpt: Call us....\n",
		"\nQuestion 2: Unrelated?\n  Status: UNMATCHED (no answer above similarity threshold)\n",
		"Total questions: 2\nMatched: 1, Unmatched: 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	report := doctree.QAReport{Questions: []doctree.QAMatch{{Question: "q", IsUnmatched: true}}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, report); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded doctree.QAReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Questions) != 1 || !decoded.Questions[0].IsUnmatched {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
}

package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

var (
	ErrNoQuestions = errors.New("qa: no questions extracted from the questions document")
	ErrNoPassages  = errors.New("qa: no answer sections found in the answers document")
)

// ScorerFactory prepares a Scorer for one comparison, typically by
// embedding the questions and passages up front.
type ScorerFactory func(ctx context.Context, questions []string, passages []Passage) (Scorer, error)

// Compare matches the questions of one document against the passages of
// another. The report's sources are left for the caller to fill in.
func Compare(ctx context.Context, questionsDoc, answersDoc doctree.Document, factory ScorerFactory, opts Options) (doctree.QAReport, error) {
	questions := Questions(questionsDoc)
	if len(questions) == 0 {
		return doctree.QAReport{}, ErrNoQuestions
	}
	passages := Passages(answersDoc)
	if len(passages) == 0 {
		return doctree.QAReport{}, ErrNoPassages
	}

	scorer, err := factory(ctx, questions, passages)
	if err != nil {
		return doctree.QAReport{}, fmt.Errorf("qa: prepare scorer: %w", err)
	}
	matches, err := Rank(ctx, questions, passages, scorer, opts)
	if err != nil {
		return doctree.QAReport{}, err
	}
	return doctree.QAReport{
		Questions:   matches,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
